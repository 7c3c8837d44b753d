package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/felixvaughn/themachine-backend/internal/services"
)

type SummaryHandler struct {
	summaryService services.SummaryService
}

func NewSummaryHandler(summaryService services.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService}
}

// BuildSummary recomputes the summary from persisted telemetry. Clients
// call it when the session ends; repeating it is harmless.
func (sh *SummaryHandler) BuildSummary(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	summary, err := sh.summaryService.BuildSummary(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "summary_failed", err)
		return
	}
	RespondOK(c, gin.H{"summary": summary})
}

func (sh *SummaryHandler) GetSummary(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	summary, err := sh.summaryService.GetSummary(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusNotFound, "summary_not_found", err)
		return
	}
	RespondOK(c, gin.H{"summary": summary})
}

func (sh *SummaryHandler) OptIn(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req struct {
		Role     string `json:"role"`
		Accepted *bool  `json:"accepted"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Accepted == nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	summary, err := sh.summaryService.RecordOptIn(c.Request.Context(), id, req.Role, *req.Accepted)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "optin_failed", err)
		return
	}
	RespondOK(c, gin.H{"summary": summary})
}

func (sh *SummaryHandler) RecordCall(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req struct {
		DurationSeconds int `json:"duration_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := sh.summaryService.RecordCallDuration(c.Request.Context(), id, req.DurationSeconds); err != nil {
		RespondError(c, http.StatusBadRequest, "call_record_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
