package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/response"
	"github.com/aura-seminar/backend/pkg/utils"
)

// Store is the user persistence the auth endpoints need.
type Store interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error)
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   Store
	tokens *TokenService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo Store, tokens *TokenService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, tokens: tokens, logger: logger}
}

// Register handles POST /auth/register. New accounts are always members;
// organizer and admin are granted through PATCH /users/:id/role.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.TrimSpace(req.Email)

	existing, err := h.repo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("lookup user by email", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	if existing != nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordLength) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), email, hash, strings.TrimSpace(req.FullName), models.RoleMember)
	if errors.Is(err, ErrEmailTaken) {
		response.BadRequest(c, "email already registered")
		return
	}
	if err != nil {
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		h.logger.Error("lookup user by email", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	var hash string
	if user != nil {
		hash = user.Password
	}
	if !utils.CheckPassword(req.Password, hash) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}
