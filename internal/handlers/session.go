package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/felixvaughn/themachine-backend/internal/services"
	"github.com/felixvaughn/themachine-backend/internal/session"
)

type SessionHandler struct {
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (sh *SessionHandler) Match(c *gin.Context) {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	slot, matched, err := sh.sessionService.Match(c.Request.Context(), req.Role)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "match_failed", err)
		return
	}
	RespondOK(c, gin.H{"session": slot, "matched": matched})
}

func (sh *SessionHandler) CreateSession(c *gin.Context) {
	var req struct {
		Role     string     `json:"role"`
		StartsAt *time.Time `json:"starts_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	startsAt := time.Time{}
	if req.StartsAt != nil {
		startsAt = *req.StartsAt
	}
	slot, err := sh.sessionService.CreateSession(c.Request.Context(), req.Role, startsAt)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "create_failed", err)
		return
	}
	RespondOK(c, gin.H{"session": slot})
}

func (sh *SessionHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	slot, err := sh.sessionService.GetSession(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusNotFound, "session_not_found", err)
		return
	}
	RespondOK(c, gin.H{"session": slot})
}

func (sh *SessionHandler) JoinSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	slot, err := sh.sessionService.JoinSession(c.Request.Context(), id, req.Role)
	if err != nil {
		RespondError(c, http.StatusConflict, "join_failed", err)
		return
	}
	RespondOK(c, gin.H{"session": slot})
}

func (sh *SessionHandler) Advance(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req struct {
		Input string `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	slot, err := sh.sessionService.Advance(c.Request.Context(), id, session.Input(req.Input))
	if err != nil {
		RespondError(c, http.StatusConflict, "advance_failed", err)
		return
	}
	RespondOK(c, gin.H{"session": slot})
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_session_id", err)
		return uuid.Nil, false
	}
	return id, true
}
