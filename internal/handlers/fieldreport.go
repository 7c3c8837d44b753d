package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/felixvaughn/themachine-backend/internal/services"
)

type FieldReportHandler struct {
	reportService services.FieldReportService
}

func NewFieldReportHandler(reportService services.FieldReportService) *FieldReportHandler {
	return &FieldReportHandler{reportService: reportService}
}

func (fh *FieldReportHandler) SubmitReport(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req struct {
		Role         string `json:"role"`
		Content      string `json:"content"`
		ShareConsent bool   `json:"share_consent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	report, err := fh.reportService.SubmitReport(c.Request.Context(), id, req.Role, req.Content, req.ShareConsent)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "report_failed", err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}

func (fh *FieldReportHandler) GetReports(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	reports, err := fh.reportService.GetReports(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "reports_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"reports": reports})
}

func (fh *FieldReportHandler) ListShared(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	reports, err := fh.reportService.ListSharedReports(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "reports_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"reports": reports})
}
