package scoring

import (
	"math/rand"
	"sort"

	"github.com/felixvaughn/themachine-backend/internal/types"
)

// Dimension is one of the five psychological content categories every
// catalog video is scored against.
type Dimension string

const (
	DimCommunal  Dimension = "communal"
	DimAesthetic Dimension = "aesthetic"
	DimDark      Dimension = "dark"
	DimThrilling Dimension = "thrilling"
	DimCerebral  Dimension = "cerebral"
)

// Dimensions lists the categories in declaration order. This order is also
// the tie-break priority for PrimaryDimension, so exposure tallying stays
// deterministic under exact score ties.
var Dimensions = []Dimension{DimCommunal, DimAesthetic, DimDark, DimThrilling, DimCerebral}

// DefaultQueueThreshold is the minimum dimension score for a video to be
// eligible for a dimension-targeted queue slot.
const DefaultQueueThreshold = 0.6

// defaultQueuePattern is the cyclic dimension sequence for the system
// starter queue.
var defaultQueuePattern = []Dimension{
	DimCerebral, DimThrilling, DimAesthetic, DimCommunal, DimDark,
	DimCerebral, DimAesthetic, DimThrilling, DimCommunal, DimDark,
}

// DimensionScore returns the video's continuous score for the named
// dimension.
func DimensionScore(v *types.Video, dim Dimension) float64 {
	switch dim {
	case DimCommunal:
		return v.DimCommunal
	case DimAesthetic:
		return v.DimAesthetic
	case DimDark:
		return v.DimDark
	case DimThrilling:
		return v.DimThrilling
	case DimCerebral:
		return v.DimCerebral
	default:
		return 0
	}
}

// PrimaryDimension returns the highest-scoring dimension; ties resolve to
// the earliest entry in Dimensions.
func PrimaryDimension(v *types.Video) Dimension {
	best := Dimensions[0]
	bestScore := DimensionScore(v, best)
	for _, dim := range Dimensions[1:] {
		if s := DimensionScore(v, dim); s > bestScore {
			best, bestScore = dim, s
		}
	}
	return best
}

// VideosAboveThreshold filters to videos whose score in dim meets the
// threshold, sorted descending by that score.
func VideosAboveThreshold(videos []*types.Video, dim Dimension, threshold float64) []*types.Video {
	var eligible []*types.Video
	for _, v := range videos {
		if DimensionScore(v, dim) >= threshold {
			eligible = append(eligible, v)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return DimensionScore(eligible[i], dim) > DimensionScore(eligible[j], dim)
	})
	return eligible
}

// BuildDefaultQueue assembles the fixed-length starter queue: one random
// eligible video per pattern slot, falling back to a uniformly random
// catalog video when no video clears the slot's threshold. Deliberately
// non-deterministic across sessions; pass a seeded rng for reproducibility.
func BuildDefaultQueue(videos []*types.Video, rng *rand.Rand) []*types.Video {
	if len(videos) == 0 {
		return nil
	}
	queue := make([]*types.Video, 0, len(defaultQueuePattern))
	for _, dim := range defaultQueuePattern {
		pool := VideosAboveThreshold(videos, dim, DefaultQueueThreshold)
		if len(pool) == 0 {
			queue = append(queue, videos[rng.Intn(len(videos))])
			continue
		}
		queue = append(queue, pool[rng.Intn(len(pool))])
	}
	return queue
}
