// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package profile

import (
	"sort"
	"time"
)

// Phase is the coarse maturity stage of a user's profile. It gates which
// behaviors (accuracy testing, optimization) are active.
type Phase string

const (
	// PhaseInitial means too few ratings for any profile.
	PhaseInitial Phase = "initial"
	// PhaseProfiling means the engine is still mapping broad tastes.
	PhaseProfiling Phase = "profiling"
	// PhaseTesting means the engine is validating its predictions.
	PhaseTesting Phase = "testing"
	// PhaseOptimizing means the profile is mature and being fine-tuned.
	PhaseOptimizing Phase = "optimizing"
)

// Ordinal returns the phase as a monotonic integer for encoding and
// metrics: initial=0, profiling=1, testing=2, optimizing=3.
func (p Phase) Ordinal() int {
	switch p {
	case PhaseProfiling:
		return 1
	case PhaseTesting:
		return 2
	case PhaseOptimizing:
		return 3
	default:
		return 0
	}
}

// GenreQuality holds per-genre rating statistics retained for
// explanations and insight text. Unlike GenreDistribution it is never
// renormalized.
type GenreQuality struct {
	// AverageExternal is the mean external catalog rating of the
	// user's rated items in this genre.
	AverageExternal float64 `json:"average_external"`

	// AverageUser is the mean user rating in this genre.
	AverageUser float64 `json:"average_user"`

	// Count is how many rated items carry this genre.
	Count int `json:"count"`
}

// Person is an accumulated-affinity entry for an actor or director.
// Weight is a running sum of rating values across appearances, not an
// average.
type Person struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// UserProfile is the derived, recomputable taste profile. It is owned
// exclusively by the engine: mutated by full rebuilds (Builder) or
// incremental patches (learning loop), and recreated from ratings at any
// time.
type UserProfile struct {
	// GenreDistribution maps genre ID to preference percentage.
	// Populated percentages sum to 100.
	GenreDistribution map[int]float64 `json:"genre_distribution"`

	// GenreNames maps genre ID to display name, for explanations.
	GenreNames map[int]string `json:"genre_names"`

	// GenreQuality maps genre ID to raw rating statistics.
	GenreQuality map[int]GenreQuality `json:"genre_quality"`

	// PeriodPreference maps decade label ("1990s") to percentage.
	// Populated percentages sum to 100.
	PeriodPreference map[string]float64 `json:"period_preference"`

	// FavoriteActors maps person ID to accumulated affinity.
	FavoriteActors map[int]Person `json:"favorite_actors"`

	// FavoriteDirectors maps person ID to accumulated affinity.
	FavoriteDirectors map[int]Person `json:"favorite_directors"`

	// AverageScore is the mean of all valid ratings (1-10 scale).
	AverageScore float64 `json:"average_score"`

	// TotalRatings is the valid-rating count at last mutation.
	TotalRatings int `json:"total_ratings"`

	// Phase is the learning phase at last mutation.
	Phase Phase `json:"phase"`

	// AccuracyScore is the fraction of re-predicted ratings within
	// tolerance, populated once the phase reaches testing.
	AccuracyScore *float64 `json:"accuracy_score,omitempty"`

	// LastUpdated is the time of the last full or incremental mutation.
	LastUpdated time.Time `json:"last_updated"`
}

// TopGenres returns up to n genre IDs ordered by descending preference.
func (p *UserProfile) TopGenres(n int) []int {
	ids := make([]int, 0, len(p.GenreDistribution))
	for id := range p.GenreDistribution {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := p.GenreDistribution[ids[i]], p.GenreDistribution[ids[j]]
		if a != b {
			return a > b
		}
		return ids[i] < ids[j] // deterministic order for equal preference
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// PhaseForCount returns the builder's learning phase for a valid-rating
// count. The real-time learning loop promotes phases with different
// thresholds; see learning.PhaseForCount. The divergence is intentional
// and both sets are live.
func PhaseForCount(validCount, minRatings, profilingThreshold, testingSpan int) Phase {
	switch {
	case validCount < minRatings:
		return PhaseInitial
	case validCount < profilingThreshold:
		return PhaseProfiling
	case validCount < profilingThreshold+testingSpan:
		return PhaseTesting
	default:
		return PhaseOptimizing
	}
}
