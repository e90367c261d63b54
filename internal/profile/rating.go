// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package profile implements the user taste profile: the rating model,
// the derived UserProfile entity, and the Profile Builder that aggregates
// rating history plus catalog metadata into a profile.
package profile

import (
	"time"

	"github.com/cinelens/cinelens/internal/catalog"
)

// Value is a user rating value. Values 1 through 10 are valid numeric
// ratings; negative values are UI sentinels retained for history but
// excluded from all statistics.
type Value int

const (
	// ValueNotWatched marks an item the user has not watched.
	ValueNotWatched Value = -1
	// ValueNotInterested marks an item the user declined.
	ValueNotInterested Value = -2
	// ValueSkip marks an item the user skipped during onboarding.
	ValueSkip Value = -3
)

// Valid reports whether the value is a numeric rating usable for learning.
func (v Value) Valid() bool {
	return v >= 1 && v <= 10
}

// Extreme reports whether the value is at either end of the rating scale.
// Extreme ratings are a stronger learning signal.
func (v Value) Extreme() bool {
	return v == 1 || v == 10
}

// String returns a human-readable form of the value.
func (v Value) String() string {
	switch v {
	case ValueNotWatched:
		return "not_watched"
	case ValueNotInterested:
		return "not_interested"
	case ValueSkip:
		return "skip"
	default:
		if v.Valid() {
			return [10]string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}[v-1]
		}
		return "invalid"
	}
}

// Rating is a single user rating of a catalog item. At most one rating
// exists per item reference; re-rating replaces the previous value.
type Rating struct {
	Ref       catalog.Ref `json:"ref"`
	Value     Value       `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

// Valid filters ratings to those with numeric values usable for learning.
func Valid(ratings []Rating) []Rating {
	out := make([]Rating, 0, len(ratings))
	for _, r := range ratings {
		if r.Value.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Upsert replaces any existing rating for the same item reference, or
// appends when the item has not been rated before. It returns the updated
// slice and the previous rating, if any.
func Upsert(ratings []Rating, r Rating) ([]Rating, *Rating) {
	for i := range ratings {
		if ratings[i].Ref == r.Ref {
			old := ratings[i]
			ratings[i] = r
			return ratings, &old
		}
	}
	return append(ratings, r), nil
}

// Remove deletes the rating for ref, returning the updated slice and the
// removed rating, if any.
func Remove(ratings []Rating, ref catalog.Ref) ([]Rating, *Rating) {
	for i := range ratings {
		if ratings[i].Ref == ref {
			old := ratings[i]
			return append(ratings[:i], ratings[i+1:]...), &old
		}
	}
	return ratings, nil
}

// AverageValue returns the arithmetic mean of the valid ratings, or zero
// when none exist.
func AverageValue(ratings []Rating) float64 {
	sum, n := 0.0, 0
	for _, r := range ratings {
		if r.Value.Valid() {
			sum += float64(r.Value)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
