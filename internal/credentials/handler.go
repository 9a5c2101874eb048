package credentials

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-seminar/backend/internal/middleware"
	"github.com/aura-seminar/backend/pkg/response"
)

// VerifyBody is the body for PUT .../credential:verify. ExpiresAt is the unix time carried in the scan link.
type VerifyBody struct {
	Token       string `json:"token"`
	NumericCode string `json:"numericCode"`
	ExpiresAt   *int64 `json:"expiresAt"`
}

// Handler handles credential HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a credential handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Issue handles POST /sessions/:id/credential.
func (h *Handler) Issue(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	res, err := h.svc.Issue(c.Request.Context(), middleware.CurrentActor(c), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// VerifySession handles PUT /sessions/:id/credential:verify.
func (h *Handler) VerifySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	h.verify(c, VerifyRequest{SessionID: sessionID})
}

// VerifySeminar handles PUT /seminars/:id/credential:verify, the numeric-code entry screen
// that does not know which session is running.
func (h *Handler) VerifySeminar(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	h.verify(c, VerifyRequest{SeminarID: seminarID})
}

func (h *Handler) verify(c *gin.Context, req VerifyRequest) {
	var body VerifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	req.Token = body.Token
	req.NumericCode = body.NumericCode
	if body.ExpiresAt != nil {
		hint := time.Unix(*body.ExpiresAt, 0)
		req.ExpiresHint = &hint
	}
	req.Requester = middleware.CurrentActor(c).UserID

	res, err := h.svc.Verify(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
