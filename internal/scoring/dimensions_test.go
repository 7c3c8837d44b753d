package scoring

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/felixvaughn/themachine-backend/internal/types"
)

func TestPrimaryDimensionTieBreak(t *testing.T) {
	v := &types.Video{
		DimCommunal:  0.5,
		DimAesthetic: 0.5,
		DimDark:      0.5,
		DimThrilling: 0.5,
		DimCerebral:  0.5,
	}
	if got := PrimaryDimension(v); got != DimCommunal {
		t.Fatalf("PrimaryDimension on all-equal scores = %q, want communal", got)
	}
}

func TestPrimaryDimensionPicksMax(t *testing.T) {
	cases := []struct {
		name string
		v    types.Video
		want Dimension
	}{
		{"dark_wins", types.Video{DimDark: 0.8, DimCommunal: 0.3}, DimDark},
		{"cerebral_wins", types.Video{DimCerebral: 0.95, DimThrilling: 0.9}, DimCerebral},
		{"partial_tie_earlier_wins", types.Video{DimAesthetic: 0.7, DimThrilling: 0.7}, DimAesthetic},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PrimaryDimension(&tc.v); got != tc.want {
				t.Fatalf("PrimaryDimension=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestVideosAboveThreshold(t *testing.T) {
	mid := &types.Video{ID: uuid.New(), DimThrilling: 0.7}
	high := &types.Video{ID: uuid.New(), DimThrilling: 0.9}
	low := &types.Video{ID: uuid.New(), DimThrilling: 0.2}
	boundary := &types.Video{ID: uuid.New(), DimThrilling: 0.6}

	got := VideosAboveThreshold([]*types.Video{mid, high, low, boundary}, DimThrilling, DefaultQueueThreshold)
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3 (threshold is inclusive)", len(got))
	}
	if got[0] != high || got[1] != mid || got[2] != boundary {
		t.Fatal("results not sorted descending by dimension score")
	}
}

func TestBuildDefaultQueueStructure(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	var catalog []*types.Video
	for i := 0; i < 4; i++ {
		catalog = append(catalog,
			&types.Video{ID: uuid.New(), DimCerebral: 0.8},
			&types.Video{ID: uuid.New(), DimThrilling: 0.8},
			&types.Video{ID: uuid.New(), DimAesthetic: 0.8},
			&types.Video{ID: uuid.New(), DimCommunal: 0.8},
			&types.Video{ID: uuid.New(), DimDark: 0.8},
		)
	}

	queue := BuildDefaultQueue(catalog, rng)
	if len(queue) != 10 {
		t.Fatalf("queue length %d, want 10", len(queue))
	}
	inCatalog := make(map[uuid.UUID]bool, len(catalog))
	for _, v := range catalog {
		inCatalog[v.ID] = true
	}
	seen := make(map[Dimension]int)
	for i, v := range queue {
		if v == nil || !inCatalog[v.ID] {
			t.Fatalf("slot %d not drawn from catalog", i)
		}
		seen[PrimaryDimension(v)]++
	}
	// Every catalog video is single-peaked, so the cyclic pattern shows
	// each dimension exactly twice.
	for _, dim := range Dimensions {
		if seen[dim] != 2 {
			t.Fatalf("dimension %q appeared %d times, want 2", dim, seen[dim])
		}
	}
}

func TestBuildDefaultQueueFallback(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	// Nothing clears the threshold; every slot falls back to a random
	// catalog pick.
	catalog := []*types.Video{
		{ID: uuid.New(), DimCerebral: 0.1},
		{ID: uuid.New(), DimDark: 0.2},
	}
	queue := BuildDefaultQueue(catalog, rng)
	if len(queue) != 10 {
		t.Fatalf("queue length %d, want 10", len(queue))
	}
}

func TestBuildDefaultQueueEmptyCatalog(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if queue := BuildDefaultQueue(nil, rng); queue != nil {
		t.Fatalf("queue for empty catalog = %v, want nil", queue)
	}
}
