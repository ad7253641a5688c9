package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"beacon-attendance/backend/internal/platform/rbac"
	"beacon-attendance/backend/internal/session/domain"
	"beacon-attendance/backend/internal/session/service"
)

// HTTPHandler exposes the session lifecycle and check-ins over HTTP. All
// routes expect an authenticated caller; the auth middleware runs first.
type HTTPHandler struct {
	sessions *service.SessionService
}

func NewHTTPHandler(sessions *service.SessionService) *HTTPHandler {
	return &HTTPHandler{sessions: sessions}
}

// Register mounts the session and attendance routes on the given router group.
func (h *HTTPHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.create)
	rg.GET("/sessions/resolve", h.resolve)
	rg.POST("/sessions/beacon", h.findByBeacon)
	rg.GET("/sessions/active", h.listActive)
	rg.POST("/sessions/:id/end", h.end)
	rg.POST("/attendance", h.recordAttendance)
}

type createRequest struct {
	Title      string     `json:"title" binding:"required"`
	StartsAt   *time.Time `json:"starts_at"`
	TTLSeconds int        `json:"ttl_seconds" binding:"required"`
}

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	OrgCode   uint16    `json:"org_code"`
	TokenHash uint16    `json:"token_hash"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *HTTPHandler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and ttl_seconds are required"})
		return
	}
	startsAt := time.Time{}
	if req.StartsAt != nil {
		startsAt = *req.StartsAt
	}
	res, err := h.sessions.Create(c.Request.Context(), req.Title, startsAt, req.TTLSeconds)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{
		SessionID: res.Session.ID,
		Token:     res.Session.Token,
		OrgCode:   res.OrgCode,
		TokenHash: res.TokenHash,
		Title:     res.Session.Title,
		StartsAt:  res.Session.StartsAt,
		ExpiresAt: res.Session.EndsAt,
	})
}

type infoResponse struct {
	SessionID        string    `json:"session_id"`
	OrgID            string    `json:"org_id"`
	Title            string    `json:"title"`
	ExpiresAt        time.Time `json:"expires_at"`
	IsCurrentlyValid bool      `json:"is_currently_valid"`
}

func (h *HTTPHandler) resolve(c *gin.Context) {
	tok := c.Query("token")
	if tok == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token query parameter is required"})
		return
	}
	info, err := h.sessions.Resolve(c.Request.Context(), tok)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, infoResponse{
		SessionID:        info.SessionID,
		OrgID:            info.OrgID,
		Title:            info.Title,
		ExpiresAt:        info.ExpiresAt,
		IsCurrentlyValid: info.IsCurrentlyValid,
	})
}

type beaconRequest struct {
	OrgCode   uint16 `json:"org_code" binding:"required"`
	TokenHash uint16 `json:"token_hash"`
}

type beaconMatchResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	OrgID     string    `json:"org_id"`
	Title     string    `json:"title"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *HTTPHandler) findByBeacon(c *gin.Context) {
	var req beaconRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "org_code and token_hash are required"})
		return
	}
	match, err := h.sessions.FindActiveByBeacon(c.Request.Context(), req.OrgCode, req.TokenHash)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, beaconMatchResponse{
		SessionID: match.SessionID,
		Token:     match.Token,
		OrgID:     match.OrgID,
		Title:     match.Title,
		ExpiresAt: match.ExpiresAt,
	})
}

type activeSessionResponse struct {
	SessionID     string    `json:"session_id"`
	Token         string    `json:"token"`
	TokenHash     uint16    `json:"token_hash"`
	Title         string    `json:"title"`
	StartsAt      time.Time `json:"starts_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	AttendeeCount int       `json:"attendee_count"`
}

func (h *HTTPHandler) listActive(c *gin.Context) {
	active, err := h.sessions.ListActive(c.Request.Context())
	if err != nil {
		writeSessionError(c, err)
		return
	}
	out := make([]activeSessionResponse, 0, len(active))
	for _, a := range active {
		out = append(out, activeSessionResponse{
			SessionID:     a.Session.ID,
			Token:         a.Session.Token,
			TokenHash:     a.TokenHash,
			Title:         a.Session.Title,
			StartsAt:      a.Session.StartsAt,
			ExpiresAt:     a.Session.EndsAt,
			AttendeeCount: a.AttendeeCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (h *HTTPHandler) end(c *gin.Context) {
	if err := h.sessions.End(c.Request.Context(), c.Param("id")); err != nil {
		writeSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type attendanceRequest struct {
	Token string `json:"token" binding:"required"`
}

type attendanceResponse struct {
	RecordID    string    `json:"record_id"`
	SessionID   string    `json:"session_id"`
	Title       string    `json:"title"`
	RecordedAt  time.Time `json:"recorded_at"`
	IsDuplicate bool      `json:"is_duplicate"`
}

func (h *HTTPHandler) recordAttendance(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	res, err := h.sessions.RecordAttendance(c.Request.Context(), req.Token)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, attendanceResponse{
		RecordID:    res.RecordID,
		SessionID:   res.SessionID,
		Title:       res.Title,
		RecordedAt:  res.RecordedAt,
		IsDuplicate: res.IsDuplicate,
	})
}

func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, rbac.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotAMember), errors.Is(err, rbac.ErrNotMember), errors.Is(err, rbac.ErrNotOfficer):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
