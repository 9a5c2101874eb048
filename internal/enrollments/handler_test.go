package enrollments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/middleware"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func router(h *Handler, actor access.Actor) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) { middleware.SetActor(c, actor) })
	r.POST("/seminars/:id/enrollments", h.Request)
	r.GET("/seminars/:id/enrollments/stats", h.Stats)
	r.POST("/enrollments/decide", h.Decide)
	r.POST("/enrollments/:id/cancel", h.Cancel)
	return r
}

func TestDecideEndpoint(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	member := access.Actor{UserID: uuid.New(), Role: models.RoleMember}

	w := httptest.NewRecorder()
	router(h, member).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/seminars/"+f.seminar.ID.String()+"/enrollments", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Enrollment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = httptest.NewRecorder()
	router(h, member).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/seminars/"+f.seminar.ID.String()+"/enrollments", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	body := `{"enrollmentId":"` + created.Data.ID.String() + `","status":"approved"}`
	w = httptest.NewRecorder()
	router(h, member).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/enrollments/decide", strings.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	var denied response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &denied))
	assert.Equal(t, "permission_denied", denied.Code)

	w = httptest.NewRecorder()
	router(h, f.owner).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/enrollments/decide", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router(h, f.owner).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/enrollments/decide",
		strings.NewReader(`{"enrollmentId":"`+created.Data.ID.String()+`","status":"maybe"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router(h, member).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/seminars/"+f.seminar.ID.String()+"/enrollments/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Data models.EnrollmentStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Data.Approved)
	assert.Equal(t, 1, stats.Data.Remaining)
}
