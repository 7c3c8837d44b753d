package demo

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixvaughn/themachine-backend/internal/types"
)

// Catalog returns the built-in demo videos, one strong entry per
// dimension plus mixed fillers, enough to fill the default queue without
// a seeded database.
func Catalog() []*types.Video {
	entries := []struct {
		youtubeID string
		title     string
		communal  float64
		aesthetic float64
		dark      float64
		thrilling float64
		cerebral  float64
	}{
		{"dPhk2eJMS60", "Street food night market rush", 0.85, 0.40, 0.10, 0.35, 0.15},
		{"w8kGkzX2VLk", "Crowd singing at a festival", 0.90, 0.35, 0.05, 0.30, 0.10},
		{"jW6yrHZcKhc", "Slow sunrise over fog banks", 0.15, 0.90, 0.05, 0.10, 0.30},
		{"pJ3fNZSmoTs", "Glassblowing in macro", 0.20, 0.85, 0.05, 0.15, 0.40},
		{"Wd2B8OAotU8", "Abandoned mall walkthrough", 0.10, 0.35, 0.85, 0.30, 0.35},
		{"v1uyQZNg2vE", "Deep sea creatures in the dark", 0.05, 0.45, 0.80, 0.40, 0.50},
		{"Pu2lojM1hBs", "Cliff runner point of view", 0.15, 0.30, 0.20, 0.90, 0.10},
		{"nQ7dOTxXXLc", "Motorcycle canyon descent", 0.20, 0.35, 0.25, 0.85, 0.15},
		{"e9mZVhnk2-I", "Why bridges resonate", 0.10, 0.30, 0.10, 0.20, 0.90},
		{"HeQX2HjkcNo", "Visualizing four dimensions", 0.05, 0.45, 0.10, 0.15, 0.92},
		{"kXYiU_JCYtU", "Drumline warm-up circle", 0.75, 0.45, 0.05, 0.45, 0.20},
		{"fJ9rUzIMcZQ", "Stage dive compilation", 0.70, 0.25, 0.15, 0.65, 0.05},
		{"y8Kyi0WNg40", "Timelapse of a glacier calving", 0.10, 0.75, 0.35, 0.55, 0.35},
		{"ZbZSe6N_BXs", "Strangers finishing each other's meals", 0.80, 0.30, 0.10, 0.20, 0.25},
		{"09R8_2nJtjg", "Cave diver squeezes a restriction", 0.05, 0.25, 0.70, 0.80, 0.25},
	}
	videos := make([]*types.Video, 0, len(entries))
	for _, e := range entries {
		title := e.title
		videos = append(videos, &types.Video{
			ID:           uuid.New(),
			YoutubeID:    e.youtubeID,
			Title:        &title,
			DimCommunal:  e.communal,
			DimAesthetic: e.aesthetic,
			DimDark:      e.dark,
			DimThrilling: e.thrilling,
			DimCerebral:  e.cerebral,
			AddedAt:      time.Now(),
		})
	}
	return videos
}
