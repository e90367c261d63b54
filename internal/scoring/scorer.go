// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinelens/cinelens/internal/catalog"
	"github.com/cinelens/cinelens/internal/config"
	"github.com/cinelens/cinelens/internal/metrics"
	"github.com/cinelens/cinelens/internal/profile"
)

// Signal blend weights. Signals absent on a candidate are dropped and the
// remaining weights renormalized, so a candidate is never penalized to
// zero for data the catalog simply lacks.
const (
	weightCombination = 0.35
	weightSingleGenre = 0.25
	weightCast        = 0.20
	weightDirector    = 0.10
	weightPeriod      = 0.07
	weightQuality     = 0.03
)

// Affinity caps: an accumulated person weight at or above the cap counts
// as full affinity.
const (
	actorWeightCap    = 10.0
	directorWeightCap = 5.0
)

// ScoredCandidate is a candidate with its similarity score and the
// matched features that explain it.
type ScoredCandidate struct {
	Ref     catalog.Ref `json:"ref"`
	Title   string      `json:"title"`
	Score   float64     `json:"score"`
	Matched []string    `json:"matched,omitempty"`
}

// Scorer scores candidates against a user profile. It is stateless apart
// from configuration.
type Scorer struct {
	cfg    config.ScoringConfig
	logger zerolog.Logger
}

// NewScorer creates a content-based scorer.
func NewScorer(cfg config.ScoringConfig, logger zerolog.Logger) *Scorer {
	return &Scorer{
		cfg:    cfg,
		logger: logger.With().Str("component", "scoring").Logger(),
	}
}

// CombinationScore accumulates the weighted genre-combination signal for
// a candidate's genre set, and returns the matched combination names for
// explanation text.
//
// A combination matches when every one of its genres appears on the
// candidate and the profile has a measured preference for at least one of
// them. Each match contributes
//
//	(avgPreferenceAcrossMatchedGenres/100) * weight * (genreCount * 0.2)
func CombinationScore(p *profile.UserProfile, candidateGenres []int) (float64, []string) {
	genreSet := make(map[int]struct{}, len(candidateGenres))
	for _, g := range candidateGenres {
		genreSet[g] = struct{}{}
	}

	var score float64
	var matched []string

	for _, combo := range combinations {
		contained := true
		for _, g := range combo.Genres {
			if _, ok := genreSet[g]; !ok {
				contained = false
				break
			}
		}
		if !contained {
			continue
		}

		prefSum, prefCount := 0.0, 0
		for _, g := range combo.Genres {
			if pref, ok := p.GenreDistribution[g]; ok {
				prefSum += pref
				prefCount++
			}
		}
		if prefCount == 0 {
			continue
		}

		avgPref := prefSum / float64(prefCount)
		score += (avgPref / 100) * combo.Weight * (float64(len(combo.Genres)) * 0.2)
		matched = append(matched, combo.Name)
	}

	return score, matched
}

// Similarity computes the weighted-blend similarity of a candidate to the
// profile, in [0,1], plus matched-feature explanations.
func (s *Scorer) Similarity(p *profile.UserProfile, md *catalog.Metadata) (float64, []string) {
	var weightedSum, weightSum float64
	var matched []string

	genreIDs := make([]int, len(md.Genres))
	for i, g := range md.Genres {
		genreIDs[i] = g.ID
	}

	// Genre combinations.
	if comboScore, comboNames := CombinationScore(p, genreIDs); len(comboNames) > 0 {
		weightedSum += weightCombination * math.Min(1, comboScore)
		weightSum += weightCombination
		matched = append(matched, comboNames...)
	}

	// Single genres: mean preference across the candidate's genres.
	if len(genreIDs) > 0 && len(p.GenreDistribution) > 0 {
		var sum float64
		for _, id := range genreIDs {
			pref := p.GenreDistribution[id]
			sum += pref / 100
			if pref > 0 {
				if name, ok := p.GenreNames[id]; ok {
					matched = append(matched, name)
				}
			}
		}
		weightedSum += weightSingleGenre * (sum / float64(len(genreIDs)))
		weightSum += weightSingleGenre
	}

	// Cast familiarity over matched actors only.
	if sum, n, names := personAffinity(md.Cast, p.FavoriteActors, actorWeightCap); n > 0 {
		weightedSum += weightCast * (sum / float64(n))
		weightSum += weightCast
		matched = append(matched, names...)
	}

	// Director familiarity over matched directors only.
	if sum, n, names := directorAffinity(md.Directors(), p.FavoriteDirectors); n > 0 {
		weightedSum += weightDirector * (sum / float64(n))
		weightSum += weightDirector
		matched = append(matched, names...)
	}

	// Release period.
	if decade := md.Decade(); decade != "" {
		if pref, ok := p.PeriodPreference[decade]; ok {
			weightedSum += weightPeriod * (pref / 100)
			weightSum += weightPeriod
		}
	}

	// Quality proximity. The x2 on the average keeps parity with the
	// legacy half-scale rating model the thresholds were tuned on.
	if md.Rating > 0 {
		quality := math.Max(0, 1-math.Abs(md.Rating-p.AverageScore*2)/10)
		weightedSum += weightQuality * quality
		weightSum += weightQuality
	}

	if weightSum == 0 {
		return 0, nil
	}
	return math.Min(1, weightedSum/weightSum), matched
}

// personAffinity sums capped affinity for cast members present in the
// affinity map. Returns the sum, match count, and matched names.
func personAffinity(cast []catalog.CastMember, affinities map[int]profile.Person, weightCap float64) (float64, int, []string) {
	var sum float64
	var names []string
	n := 0
	for _, c := range cast {
		if person, ok := affinities[c.ID]; ok {
			sum += math.Min(1, person.Weight/weightCap)
			names = append(names, person.Name)
			n++
		}
	}
	return sum, n, names
}

// directorAffinity sums capped affinity for matched directors.
func directorAffinity(directors []catalog.CrewMember, affinities map[int]profile.Person) (float64, int, []string) {
	var sum float64
	var names []string
	n := 0
	for _, d := range directors {
		if person, ok := affinities[d.ID]; ok {
			sum += math.Min(1, person.Weight/directorWeightCap)
			names = append(names, fmt.Sprintf("directed by %s", person.Name))
			n++
		}
	}
	return sum, n, names
}

// ScoreCandidates scores every candidate against the profile, drops those
// below the similarity threshold, and returns the descending top results.
func (s *Scorer) ScoreCandidates(p *profile.UserProfile, candidates []*catalog.Metadata) []ScoredCandidate {
	start := time.Now()
	defer metrics.ObserveRecommendation(start)
	metrics.RecommendationRequests.WithLabelValues("content").Inc()

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, md := range candidates {
		score, matchedNames := s.Similarity(p, md)
		if score < s.cfg.MinSimilarity {
			continue
		}
		scored = append(scored, ScoredCandidate{
			Ref:     md.Ref,
			Title:   md.Title,
			Score:   score,
			Matched: matchedNames,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > s.cfg.MaxResults {
		scored = scored[:s.cfg.MaxResults]
	}

	s.logger.Debug().
		Int("candidates", len(candidates)).
		Int("returned", len(scored)).
		Msg("content-based scoring complete")
	return scored
}
