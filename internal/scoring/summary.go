package scoring

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/felixvaughn/themachine-backend/internal/types"
)

// Engagement multiplier bounds. The ratio of optimizer-picked to
// system-picked mean dwell is clamped so one outlier video cannot dominate
// the score.
const (
	minEngagementMultiplier = 0.5
	maxEngagementMultiplier = 3.0
)

// explorationThreshold is how many videos of a dimension must be shown for
// that dimension to count as explored.
const explorationThreshold = 3

// UmapCoords is the 2-D taste-fingerprint projection.
type UmapCoords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BuildSummary reduces a session's recorded scroll events to its summary.
// Pure and deterministic: the same events and video lookup always produce
// the same numeric fields (only ID and CreatedAt are freshly generated).
// Events referencing videos missing from the lookup still count toward
// duration and partition totals but contribute nothing to dimension math,
// matching how the event log outlives catalog edits.
func BuildSummary(sessionID uuid.UUID, events []*types.ScrollEvent, videos map[uuid.UUID]*types.Video) *types.SessionSummary {
	durationSeconds := 0
	for _, e := range events {
		if s := int(e.TimestampMS / 1000); s > durationSeconds {
			durationSeconds = s
		}
	}

	var optimizerEvents, systemEvents []*types.ScrollEvent
	for _, e := range events {
		switch e.QueuedBy {
		case "optimizer":
			optimizerEvents = append(optimizerEvents, e)
		case "system":
			systemEvents = append(systemEvents, e)
		}
	}

	avgDwell := func(evs []*types.ScrollEvent) *float64 {
		if len(evs) == 0 {
			return nil
		}
		var sum float64
		for _, e := range evs {
			sum += float64(e.DwellMS)
		}
		mean := sum / float64(len(evs))
		return &mean
	}
	avgOpt := avgDwell(optimizerEvents)
	avgSys := avgDwell(systemEvents)

	// Neutral default when either partition is missing: absence of a
	// baseline neither rewards nor penalizes.
	engagement := 1.0
	if avgOpt != nil && avgSys != nil && *avgSys > 0 {
		engagement = clamp(*avgOpt / *avgSys, minEngagementMultiplier, maxEngagementMultiplier)
	}

	tallies := make(map[Dimension]int, len(Dimensions))
	for _, e := range events {
		v, ok := videos[e.VideoID]
		if !ok {
			continue
		}
		tallies[PrimaryDimension(v)]++
	}

	explored := 0
	for _, dim := range Dimensions {
		if tallies[dim] >= explorationThreshold {
			explored++
		}
	}

	total := len(events)
	if total == 0 {
		total = 1
	}
	entropy := 0.0
	for _, dim := range Dimensions {
		p := float64(tallies[dim]) / float64(total)
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}

	totalDwell := 0.0
	for _, e := range events {
		totalDwell += float64(e.DwellMS)
	}
	if totalDwell == 0 {
		totalDwell = 1
	}
	feature := make(map[Dimension]float64, len(Dimensions))
	for _, e := range events {
		v, ok := videos[e.VideoID]
		if !ok {
			continue
		}
		weight := float64(e.DwellMS) / totalDwell
		for _, dim := range Dimensions {
			feature[dim] += DimensionScore(v, dim) * weight
		}
	}

	explorationBonus := 1 + 0.2*float64(explored)/5
	score := int(math.Floor(float64(durationSeconds) * engagement * explorationBonus))

	coords := UmapCoords{
		X: clamp(0.5+(feature[DimAesthetic]+feature[DimThrilling]-feature[DimCommunal]-feature[DimDark])/4, 0, 1),
		Y: clamp(0.5+(feature[DimCerebral]+feature[DimCommunal]-feature[DimDark]-feature[DimThrilling])/4, 0, 1),
	}

	totalInfoGain := 0.0
	for _, e := range events {
		if e.InfoGain != nil {
			totalInfoGain += *e.InfoGain
		}
	}

	featureJSON := make(map[string]float64, len(Dimensions))
	for _, dim := range Dimensions {
		featureJSON[string(dim)] = feature[dim]
	}
	featureRaw, _ := json.Marshal(featureJSON)
	coordsRaw, _ := json.Marshal(coords)

	now := time.Now().UTC()
	return &types.SessionSummary{
		ID:                   uuid.New(),
		SessionID:            sessionID,
		DurationSeconds:      durationSeconds,
		TotalVideosShown:     len(events),
		OptimizerVideosShown: len(optimizerEvents),
		SystemVideosShown:    len(systemEvents),
		AvgDwellOptimizerMS:  avgOpt,
		AvgDwellSystemMS:     avgSys,
		EngagementMultiplier: engagement,
		TotalInfoGain:        totalInfoGain,
		DimensionsExplored:   explored,
		ExplorationEntropy:   entropy,
		OptimizerScore:       score,
		FinalFeatureVector:   datatypes.JSON(featureRaw),
		FinalUmapCoords:      datatypes.JSON(coordsRaw),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
