// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package neural

import (
	"math"
	"sort"
	"time"

	"github.com/cinelens/cinelens/internal/catalog"
	"github.com/cinelens/cinelens/internal/metrics"
	"github.com/cinelens/cinelens/internal/profile"
)

// Recommendation thresholds.
const (
	minPredictedRating = 6.0
	minConfidence      = 0.5
	safeThreshold      = 8.0
	exploreThreshold   = 7.0
)

// RecommendationType classifies how adventurous a recommendation is.
type RecommendationType string

const (
	// TypeSafe is a high-confidence, high-prediction pick.
	TypeSafe RecommendationType = "safe"
	// TypeExploratory is a solid pick slightly off the beaten path.
	TypeExploratory RecommendationType = "exploratory"
	// TypeSerendipitous is a deliberate stretch.
	TypeSerendipitous RecommendationType = "serendipitous"
)

// Recommendation is a scored candidate from the learned scorer.
type Recommendation struct {
	Ref        catalog.Ref        `json:"ref"`
	Title      string             `json:"title"`
	Predicted  float64            `json:"predicted"`
	Confidence float64            `json:"confidence"`
	Novelty    float64            `json:"novelty"`
	Diversity  float64            `json:"diversity"`
	Type       RecommendationType `json:"type"`
}

// Recommend predicts a rating for each candidate and returns those the
// model is confident the user will like, ranked by predicted rating and
// truncated to count.
func (s *Scorer) Recommend(candidates []*catalog.Metadata, p *profile.UserProfile, count int) []Recommendation {
	start := time.Now()
	defer metrics.ObserveRecommendation(start)
	metrics.RecommendationRequests.WithLabelValues("neural").Inc()

	topGenres := make(map[int]struct{})
	for _, id := range p.TopGenres(5) {
		topGenres[id] = struct{}{}
	}

	confidence := s.Confidence()
	recs := make([]Recommendation, 0, len(candidates))
	for _, md := range candidates {
		predicted := s.Predict(md, p)
		if predicted < minPredictedRating || confidence < minConfidence {
			continue
		}

		recs = append(recs, Recommendation{
			Ref:        md.Ref,
			Title:      md.Title,
			Predicted:  predicted,
			Confidence: confidence,
			Novelty:    novelty(md, topGenres),
			Diversity:  diversity(md, p),
			Type:       classify(predicted),
		})
	}

	// Descending by predicted rating; the x10 preserves ordering parity
	// with the persisted integer score scale.
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Predicted*10 > recs[j].Predicted*10
	})
	if count > 0 && len(recs) > count {
		recs = recs[:count]
	}
	return recs
}

// novelty measures how far a candidate sits from the user's habitual
// genres: 1 means no overlap with the top-5 genres.
func novelty(md *catalog.Metadata, topGenres map[int]struct{}) float64 {
	overlap := 0
	for _, g := range md.Genres {
		if _, ok := topGenres[g.ID]; ok {
			overlap++
		}
	}
	return 1 - float64(overlap)/math.Max(1, float64(len(md.Genres)))
}

// diversity is a coarse heuristic for how much a candidate broadens the
// user's pattern: genre breadth and quality distance both add to a 0.5
// base, clamped to [0, 1].
func diversity(md *catalog.Metadata, p *profile.UserProfile) float64 {
	d := 0.5
	if len(md.Genres) >= 3 {
		d += 0.2
	}
	if math.Abs(md.Rating-p.AverageScore) > 2 {
		d += 0.3
	}
	return math.Max(0, math.Min(1, d))
}

// classify buckets a predicted rating into a recommendation type.
func classify(predicted float64) RecommendationType {
	switch {
	case predicted >= safeThreshold:
		return TypeSafe
	case predicted >= exploreThreshold:
		return TypeExploratory
	default:
		return TypeSerendipitous
	}
}
