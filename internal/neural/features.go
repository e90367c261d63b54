// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package neural implements the learned scorer: a small feed-forward
// scoring model with its own feature encoding, trained on rated history
// and persisted across sessions with a validity window.
package neural

import (
	"math"

	"github.com/cinelens/cinelens/internal/catalog"
	"github.com/cinelens/cinelens/internal/profile"
)

// FeatureSize is the fixed length of every encoded feature vector.
// Shorter encodings are zero-padded; nothing currently exceeds it.
const FeatureSize = 128

// Feature slot layout. Offsets are fixed so persisted models stay
// compatible with the encoder.
const (
	slotExternalRating = 0
	slotPopularity     = 1
	slotAdult          = 2
	slotGenreCount     = 3
	slotTopGenres      = 4 // 20 one-hot slots
	topGenreSlots      = 20
	slotYearSin        = 24
	slotYearCos        = 25
	slotYearNorm       = 26
	slotUserAverage    = 27
	slotRatingCount    = 28
	slotPhase          = 29
	slotCast           = 30 // 10 familiarity slots
	castSlots          = 10
	slotDirectors      = 40 // 10 familiarity slots
	directorSlots      = 10
	slotPeriod         = 50
	slotQualityA       = 51
	slotQualityB       = 52
	slotDemographics   = 53 // up to 10 slots
	demographicSlots   = 10
)

// Demographics is optional user demographic data. When present it fills
// the demographic feature slots; when nil those slots stay zero.
type Demographics struct {
	// Age in years.
	Age int `json:"age"`

	// Gender is a free-form category; only the known categories below
	// are encoded.
	Gender string `json:"gender"`

	// LanguageMatch flags whether the candidate's original language
	// matches the user's preferred language.
	LanguageMatch bool `json:"language_match"`
}

// Encoder turns a candidate plus profile into a fixed-length feature
// vector. It is stateless and safe for concurrent use.
type Encoder struct{}

// Encode builds the 128-dimensional feature vector for a candidate item
// against a profile. demo may be nil.
func (Encoder) Encode(md *catalog.Metadata, p *profile.UserProfile, demo *Demographics) []float64 {
	v := make([]float64, FeatureSize)

	// Item-level signals.
	v[slotExternalRating] = clamp01(md.Rating / 10)
	v[slotPopularity] = clamp01(md.Popularity / 100)
	if md.Adult {
		v[slotAdult] = 1
	}
	v[slotGenreCount] = clamp01(float64(len(md.Genres)) / 10)

	// One-hot presence against the profile's top genres by preference.
	top := p.TopGenres(topGenreSlots)
	candidateGenres := make(map[int]struct{}, len(md.Genres))
	for _, g := range md.Genres {
		candidateGenres[g.ID] = struct{}{}
	}
	for i, id := range top {
		if _, ok := candidateGenres[id]; ok {
			v[slotTopGenres+i] = 1
		}
	}

	// Cyclical encoding of release-year-within-decade plus absolute year.
	if year := md.Year(); year > 0 {
		within := float64(year % 10)
		v[slotYearSin] = math.Sin(2 * math.Pi * within / 10)
		v[slotYearCos] = math.Cos(2 * math.Pi * within / 10)
		v[slotYearNorm] = clamp01(float64(year-1900) / 200)
	}

	// Profile-level signals.
	v[slotUserAverage] = clamp01(p.AverageScore / 10)
	v[slotRatingCount] = clamp01(float64(p.TotalRatings) / 100)
	v[slotPhase] = float64(p.Phase.Ordinal()) / 3

	// Cast familiarity: capped, normalized affinity per billing slot.
	for i, c := range md.TopCast(castSlots) {
		if person, ok := p.FavoriteActors[c.ID]; ok {
			v[slotCast+i] = clamp01(person.Weight / 10)
		}
	}

	// Director familiarity.
	for i, d := range md.Directors() {
		if i >= directorSlots {
			break
		}
		if person, ok := p.FavoriteDirectors[d.ID]; ok {
			v[slotDirectors+i] = clamp01(person.Weight / 5)
		}
	}

	// Period preference for the candidate's decade.
	if decade := md.Decade(); decade != "" {
		v[slotPeriod] = clamp01(p.PeriodPreference[decade] / 100)
	}

	// Quality tolerance: proximity of the item's external rating to the
	// user's average, and the raw gap.
	if md.Rating > 0 && p.AverageScore > 0 {
		gap := math.Abs(md.Rating - p.AverageScore)
		v[slotQualityA] = clamp01(1 - gap/10)
		v[slotQualityB] = clamp01(gap / 10)
	}

	// Demographics, when available.
	if demo != nil {
		v[slotDemographics] = clamp01(float64(demo.Age) / 100)
		switch demo.Gender {
		case "female":
			v[slotDemographics+1] = 1
		case "male":
			v[slotDemographics+2] = 1
		case "nonbinary":
			v[slotDemographics+3] = 1
		}
		if demo.LanguageMatch {
			v[slotDemographics+4] = 1
		}
	}

	return v
}

// clamp01 clamps x into [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
