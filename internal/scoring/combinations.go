// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package scoring implements the content-based scorer: candidates are
// scored against a user profile with weighted single-genre and
// multi-genre combination signals plus people, period, and quality
// signals.
package scoring

// Genre IDs follow the catalog provider's numbering.
const (
	genreAction    = 28
	genreAdventure = 12
	genreAnimation = 16
	genreComedy    = 35
	genreCrime     = 80
	genreDrama     = 18
	genreFamily    = 10751
	genreFantasy   = 14
	genreHistory   = 36
	genreHorror    = 27
	genreMystery   = 9648
	genreRomance   = 10749
	genreSciFi     = 878
	genreThriller  = 53
	genreWar       = 10752
)

// Combination is a fixed, named set of genres treated as a single
// stronger preference signal when fully present on a candidate.
type Combination struct {
	Name   string
	Genres []int
	Weight float64
}

// combinations is the static weighted table. Pairs carry weights
// 1.1-1.3; triples are the stronger signal at 1.4-1.6.
var combinations = []Combination{
	// Pairs
	{Name: "Action Adventure", Genres: []int{genreAction, genreAdventure}, Weight: 1.3},
	{Name: "Sci-Fi Thriller", Genres: []int{genreSciFi, genreThriller}, Weight: 1.3},
	{Name: "Crime Drama", Genres: []int{genreCrime, genreDrama}, Weight: 1.25},
	{Name: "Romantic Comedy", Genres: []int{genreRomance, genreComedy}, Weight: 1.2},
	{Name: "Horror Mystery", Genres: []int{genreHorror, genreMystery}, Weight: 1.2},
	{Name: "War History", Genres: []int{genreWar, genreHistory}, Weight: 1.15},
	{Name: "Fantasy Adventure", Genres: []int{genreFantasy, genreAdventure}, Weight: 1.15},
	{Name: "Family Animation", Genres: []int{genreFamily, genreAnimation}, Weight: 1.1},
	{Name: "Comedy Drama", Genres: []int{genreComedy, genreDrama}, Weight: 1.1},

	// Triples
	{Name: "Epic Sci-Fi Action", Genres: []int{genreSciFi, genreAction, genreAdventure}, Weight: 1.6},
	{Name: "Dark Crime Thriller", Genres: []int{genreCrime, genreDrama, genreThriller}, Weight: 1.55},
	{Name: "Heroic Fantasy", Genres: []int{genreFantasy, genreAction, genreAdventure}, Weight: 1.5},
	{Name: "Chilling Suspense", Genres: []int{genreHorror, genreMystery, genreThriller}, Weight: 1.45},
	{Name: "Animated Family Comedy", Genres: []int{genreAnimation, genreFamily, genreComedy}, Weight: 1.4},
}

// Combinations returns the static combination table.
func Combinations() []Combination {
	return combinations
}
