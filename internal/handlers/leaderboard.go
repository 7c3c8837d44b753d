package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/felixvaughn/themachine-backend/internal/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

func (lh *LeaderboardHandler) Top(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := lh.leaderboardService.TopOptimizers(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "leaderboard_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"leaderboard": entries})
}
