// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package neural

import (
	"math"
	"testing"

	"github.com/cinelens/cinelens/internal/catalog"
	"github.com/cinelens/cinelens/internal/profile"
)

// Without a trained model the scorer predicts via the fallback blend
// 0.7*external + 0.3*average, which makes the expected predictions in
// these tests exact.
func recommendProfile() *profile.UserProfile {
	return &profile.UserProfile{
		GenreDistribution: map[int]float64{28: 40, 18: 30, 35: 20, 878: 7, 12: 3},
		AverageScore:      6,
		TotalRatings:      30,
		Phase:             profile.PhaseTesting,
	}
}

func candidate(id int, rating float64, genres ...int) *catalog.Metadata {
	md := &catalog.Metadata{
		Ref:    catalog.Ref{ItemID: id, Kind: catalog.KindMovie},
		Title:  "candidate",
		Rating: rating,
	}
	for _, g := range genres {
		md.Genres = append(md.Genres, catalog.Genre{ID: g})
	}
	return md
}

func TestRecommendFiltersByPredictedRating(t *testing.T) {
	s := testScorer(t, 1)
	p := recommendProfile()

	// fallback: 0.7*6.0 + 0.3*6 = 6.0 (boundary, included)
	//           0.7*5.85 + 0.3*6 = 5.895 (excluded)
	recs := s.Recommend([]*catalog.Metadata{
		candidate(1, 6.0, 28),
		candidate(2, 5.85, 28),
	}, p, 10)

	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	if recs[0].Ref.ItemID != 1 {
		t.Errorf("kept item %d, want 1 (predicted exactly 6.0)", recs[0].Ref.ItemID)
	}
	if recs[0].Confidence != 0.5 {
		t.Errorf("confidence = %f, want floor 0.5", recs[0].Confidence)
	}
}

func TestRecommendOrderingAndTruncation(t *testing.T) {
	s := testScorer(t, 1)
	p := recommendProfile()

	recs := s.Recommend([]*catalog.Metadata{
		candidate(1, 7.0, 28),
		candidate(2, 9.5, 18),
		candidate(3, 8.0, 35),
		candidate(4, 6.5, 878),
	}, p, 2)

	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2 after truncation", len(recs))
	}
	if recs[0].Ref.ItemID != 2 || recs[1].Ref.ItemID != 3 {
		t.Errorf("order = [%d, %d], want [2, 3] (descending predicted)", recs[0].Ref.ItemID, recs[1].Ref.ItemID)
	}
	if recs[0].Predicted < recs[1].Predicted {
		t.Error("recommendations not sorted by predicted rating")
	}
}

func TestRecommendClassification(t *testing.T) {
	s := testScorer(t, 1)
	p := recommendProfile()

	// fallback predictions: 10 -> 8.8 safe, 7.5 -> 7.05 exploratory,
	// 6.1 -> 6.07 serendipitous.
	recs := s.Recommend([]*catalog.Metadata{
		candidate(1, 10, 28),
		candidate(2, 7.5, 18),
		candidate(3, 6.1, 35),
	}, p, 0)

	if len(recs) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(recs))
	}
	want := map[int]RecommendationType{1: TypeSafe, 2: TypeExploratory, 3: TypeSerendipitous}
	for _, r := range recs {
		if r.Type != want[r.Ref.ItemID] {
			t.Errorf("item %d classified %q, want %q", r.Ref.ItemID, r.Type, want[r.Ref.ItemID])
		}
	}
}

func TestNovelty(t *testing.T) {
	top := map[int]struct{}{28: {}, 18: {}}
	tests := []struct {
		name string
		md   *catalog.Metadata
		want float64
	}{
		{"full overlap", candidate(1, 8, 28, 18), 0},
		{"half overlap", candidate(2, 8, 28, 99), 0.5},
		{"no overlap", candidate(3, 8, 99, 77), 1},
		{"no genres", candidate(4, 8), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := novelty(tt.md, top); got != tt.want {
				t.Errorf("novelty = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestDiversity(t *testing.T) {
	p := recommendProfile() // average 6
	tests := []struct {
		name string
		md   *catalog.Metadata
		want float64
	}{
		{"baseline", candidate(1, 7, 28), 0.5},
		{"genre breadth", candidate(2, 7, 28, 18, 35), 0.7},
		{"quality stretch", candidate(3, 9, 28), 0.8},
		{"both", candidate(4, 9, 28, 18, 35), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := diversity(tt.md, p); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("diversity = %f, want %f", got, tt.want)
			}
		})
	}
}
