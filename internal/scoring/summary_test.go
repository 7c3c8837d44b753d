package scoring

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/felixvaughn/themachine-backend/internal/types"
)

func cerebralVideo() *types.Video {
	return &types.Video{
		ID:           uuid.New(),
		YoutubeID:    "cerebral-clip",
		DimCommunal:  0.1,
		DimAesthetic: 0.2,
		DimDark:      0.1,
		DimThrilling: 0.3,
		DimCerebral:  0.9,
	}
}

func makeEvent(sessionID uuid.UUID, videoID uuid.UUID, dwellMS, timestampMS int64, queuedBy string) *types.ScrollEvent {
	return &types.ScrollEvent{
		SessionID:   sessionID,
		VideoID:     videoID,
		DwellMS:     dwellMS,
		TimestampMS: timestampMS,
		QueuedBy:    queuedBy,
	}
}

func TestBuildSummaryMixedQueuers(t *testing.T) {
	sessionID := uuid.New()
	video := cerebralVideo()
	videos := map[uuid.UUID]*types.Video{video.ID: video}

	systemDwells := []int64{3000, 4000, 5000, 3500, 4500, 5200}
	optimizerDwells := []int64{8000, 9000, 7500, 8600}

	var events []*types.ScrollEvent
	ts := int64(0)
	for _, d := range systemDwells {
		ts += 5000
		events = append(events, makeEvent(sessionID, video.ID, d, ts, "system"))
	}
	for _, d := range optimizerDwells {
		ts += 5000
		events = append(events, makeEvent(sessionID, video.ID, d, ts, "optimizer"))
	}

	s := BuildSummary(sessionID, events, videos)

	if s.TotalVideosShown != 10 || s.SystemVideosShown != 6 || s.OptimizerVideosShown != 4 {
		t.Fatalf("counts total=%d sys=%d opt=%d, want 10/6/4",
			s.TotalVideosShown, s.SystemVideosShown, s.OptimizerVideosShown)
	}
	if s.AvgDwellSystemMS == nil || *s.AvgDwellSystemMS != 4200 {
		t.Fatalf("system mean dwell %v, want 4200", s.AvgDwellSystemMS)
	}
	if s.AvgDwellOptimizerMS == nil || *s.AvgDwellOptimizerMS != 8275 {
		t.Fatalf("optimizer mean dwell %v, want 8275", s.AvgDwellOptimizerMS)
	}
	wantMult := 8275.0 / 4200.0
	if math.Abs(s.EngagementMultiplier-wantMult) > 1e-9 {
		t.Fatalf("engagement multiplier %v, want %v", s.EngagementMultiplier, wantMult)
	}
	// Only cerebral reaches the exploration threshold (it reaches 10).
	if s.DimensionsExplored != 1 {
		t.Fatalf("dimensions explored %d, want 1", s.DimensionsExplored)
	}
	// A single exposed dimension means zero entropy.
	if s.ExplorationEntropy != 0 {
		t.Fatalf("entropy %v, want 0", s.ExplorationEntropy)
	}
	// Last event lands at ts=50000ms.
	if s.DurationSeconds != 50 {
		t.Fatalf("duration %d, want 50", s.DurationSeconds)
	}
	wantScore := int(math.Floor(50 * wantMult * 1.04))
	if s.OptimizerScore != wantScore {
		t.Fatalf("score %d, want %d", s.OptimizerScore, wantScore)
	}

	// Every event shows the same video, so the dwell-weighted feature
	// vector collapses to that video's raw scores.
	var feature map[string]float64
	if err := json.Unmarshal(s.FinalFeatureVector, &feature); err != nil {
		t.Fatalf("unmarshal feature vector: %v", err)
	}
	if math.Abs(feature["cerebral"]-0.9) > 1e-9 {
		t.Fatalf("feature cerebral %v, want 0.9", feature["cerebral"])
	}
}

func TestBuildSummaryEmpty(t *testing.T) {
	s := BuildSummary(uuid.New(), nil, map[uuid.UUID]*types.Video{})

	if s.DurationSeconds != 0 {
		t.Fatalf("duration %d, want 0", s.DurationSeconds)
	}
	if s.TotalVideosShown != 0 || s.SystemVideosShown != 0 || s.OptimizerVideosShown != 0 {
		t.Fatal("counts nonzero for empty event list")
	}
	if s.AvgDwellSystemMS != nil || s.AvgDwellOptimizerMS != nil {
		t.Fatal("empty partitions must yield absent averages, not zero")
	}
	if s.EngagementMultiplier != 1.0 {
		t.Fatalf("engagement multiplier %v, want 1.0", s.EngagementMultiplier)
	}
	if s.ExplorationEntropy != 0 {
		t.Fatalf("entropy %v, want 0", s.ExplorationEntropy)
	}
	if s.OptimizerScore != 0 {
		t.Fatalf("score %d, want 0", s.OptimizerScore)
	}
}

func TestBuildSummaryInvariants(t *testing.T) {
	sessionID := uuid.New()
	videos := make(map[uuid.UUID]*types.Video)
	var events []*types.ScrollEvent

	dims := []float64{0.95, 0.7, 0.3, 0.5, 0.1}
	for i := 0; i < 25; i++ {
		v := &types.Video{
			ID:           uuid.New(),
			DimCommunal:  dims[i%5],
			DimAesthetic: dims[(i+1)%5],
			DimDark:      dims[(i+2)%5],
			DimThrilling: dims[(i+3)%5],
			DimCerebral:  dims[(i+4)%5],
		}
		videos[v.ID] = v
		queuedBy := "system"
		if i%3 == 0 {
			queuedBy = "optimizer"
		}
		events = append(events, makeEvent(sessionID, v.ID, int64(1000+i*137), int64((i+1)*2000), queuedBy))
	}

	s := BuildSummary(sessionID, events, videos)

	if s.DimensionsExplored < 0 || s.DimensionsExplored > 5 {
		t.Fatalf("dimensions explored %d out of [0,5]", s.DimensionsExplored)
	}
	if s.ExplorationEntropy < 0 || s.ExplorationEntropy > math.Log2(5)+1e-9 {
		t.Fatalf("entropy %v out of [0, log2(5)]", s.ExplorationEntropy)
	}
	if s.EngagementMultiplier < 0 || math.IsNaN(s.EngagementMultiplier) {
		t.Fatalf("engagement multiplier %v invalid", s.EngagementMultiplier)
	}

	var coords UmapCoords
	if err := json.Unmarshal(s.FinalUmapCoords, &coords); err != nil {
		t.Fatalf("unmarshal coords: %v", err)
	}
	if coords.X < 0 || coords.X > 1 || coords.Y < 0 || coords.Y > 1 {
		t.Fatalf("coords (%v,%v) out of unit square", coords.X, coords.Y)
	}
}

func TestBuildSummaryIdempotent(t *testing.T) {
	sessionID := uuid.New()
	video := cerebralVideo()
	videos := map[uuid.UUID]*types.Video{video.ID: video}
	events := []*types.ScrollEvent{
		makeEvent(sessionID, video.ID, 3000, 3000, "system"),
		makeEvent(sessionID, video.ID, 7000, 10000, "optimizer"),
		makeEvent(sessionID, video.ID, 2000, 12000, "system"),
	}

	a := BuildSummary(sessionID, events, videos)
	b := BuildSummary(sessionID, events, videos)

	if a.DurationSeconds != b.DurationSeconds ||
		a.EngagementMultiplier != b.EngagementMultiplier ||
		a.DimensionsExplored != b.DimensionsExplored ||
		a.ExplorationEntropy != b.ExplorationEntropy ||
		a.OptimizerScore != b.OptimizerScore ||
		a.TotalInfoGain != b.TotalInfoGain ||
		string(a.FinalFeatureVector) != string(b.FinalFeatureVector) ||
		string(a.FinalUmapCoords) != string(b.FinalUmapCoords) {
		t.Fatal("identical inputs produced diverging summaries")
	}
}

func TestBuildSummaryClampsMultiplier(t *testing.T) {
	sessionID := uuid.New()
	video := cerebralVideo()
	videos := map[uuid.UUID]*types.Video{video.ID: video}
	events := []*types.ScrollEvent{
		makeEvent(sessionID, video.ID, 100, 1000, "system"),
		makeEvent(sessionID, video.ID, 60000, 2000, "optimizer"),
	}

	s := BuildSummary(sessionID, events, videos)
	if s.EngagementMultiplier != 3.0 {
		t.Fatalf("multiplier %v, want clamped 3.0", s.EngagementMultiplier)
	}

	events = []*types.ScrollEvent{
		makeEvent(sessionID, video.ID, 60000, 1000, "system"),
		makeEvent(sessionID, video.ID, 100, 2000, "optimizer"),
	}
	s = BuildSummary(sessionID, events, videos)
	if s.EngagementMultiplier != 0.5 {
		t.Fatalf("multiplier %v, want clamped 0.5", s.EngagementMultiplier)
	}
}

func TestBuildSummaryEntropySpread(t *testing.T) {
	sessionID := uuid.New()
	videos := make(map[uuid.UUID]*types.Video)
	var events []*types.ScrollEvent

	// One dominant dimension per video, five videos per dimension: a
	// uniform exposure distribution hits maximal entropy and full
	// exploration.
	for i, dim := range Dimensions {
		for j := 0; j < 5; j++ {
			v := &types.Video{ID: uuid.New()}
			switch dim {
			case DimCommunal:
				v.DimCommunal = 0.9
			case DimAesthetic:
				v.DimAesthetic = 0.9
			case DimDark:
				v.DimDark = 0.9
			case DimThrilling:
				v.DimThrilling = 0.9
			case DimCerebral:
				v.DimCerebral = 0.9
			}
			videos[v.ID] = v
			events = append(events, makeEvent(sessionID, v.ID, 2000, int64((i*5+j+1)*1000), "system"))
		}
	}

	s := BuildSummary(sessionID, events, videos)
	if s.DimensionsExplored != 5 {
		t.Fatalf("dimensions explored %d, want 5", s.DimensionsExplored)
	}
	if math.Abs(s.ExplorationEntropy-math.Log2(5)) > 1e-9 {
		t.Fatalf("entropy %v, want log2(5)=%v", s.ExplorationEntropy, math.Log2(5))
	}
}
