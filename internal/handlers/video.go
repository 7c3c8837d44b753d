package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/felixvaughn/themachine-backend/internal/services"
)

type VideoHandler struct {
	videoService services.VideoService
}

func NewVideoHandler(videoService services.VideoService) *VideoHandler {
	return &VideoHandler{videoService: videoService}
}

func (vh *VideoHandler) ListVideos(c *gin.Context) {
	videos, err := vh.videoService.ListVideos(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "catalog_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"videos": videos})
}

func (vh *VideoHandler) DefaultQueue(c *gin.Context) {
	queue, err := vh.videoService.DefaultQueue(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "queue_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"queue": queue})
}
