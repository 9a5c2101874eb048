package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/models"
)

const tokenIssuer = "aura-seminar"

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrUnknownAccount = errors.New("account no longer exists")
)

// Claims identify the caller by subject and carry the platform role held when the token was issued.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the caller named by the claims.
func (c *Claims) Actor() (access.Actor, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return access.Actor{}, fmt.Errorf("%w: subject: %v", ErrInvalidToken, err)
	}
	return access.Actor{UserID: id, Role: c.Role}, nil
}

// TokenService signs and parses access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service issuing tokens valid for ttl.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for u.
func (s *TokenService) Issue(u *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse validates a token. Errors wrap ErrTokenExpired or ErrInvalidToken.
func (s *TokenService) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case !claims.Role.Valid():
		return nil, fmt.Errorf("%w: role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}

// UserLookup loads a user by id; nil when the account is gone.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticator turns a bearer token into the caller. The role comes from the stored account,
// so a role change applies to the next request rather than the next login.
type Authenticator struct {
	tokens *TokenService
	users  UserLookup
}

// NewAuthenticator creates an Authenticator. With nil users the role in the token is trusted.
func NewAuthenticator(tokens *TokenService, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate validates token and resolves the caller's current role.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (access.Actor, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return access.Actor{}, err
	}
	actor, err := claims.Actor()
	if err != nil || a.users == nil {
		return actor, err
	}
	u, err := a.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return access.Actor{}, fmt.Errorf("load caller: %w", err)
	}
	if u == nil {
		return access.Actor{}, ErrUnknownAccount
	}
	actor.Role = u.Role
	return actor, nil
}
