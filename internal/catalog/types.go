// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package catalog defines the content-lookup boundary of the engine:
// catalog metadata types, the Lookup interface implemented by external
// metadata providers, and decorators that add caching, circuit breaking,
// and batched prefetching on top of a provider.
package catalog

import (
	"fmt"
	"time"
)

// MediaKind identifies the kind of catalog item.
type MediaKind string

const (
	// KindMovie is a feature film.
	KindMovie MediaKind = "movie"
	// KindShow is an episodic series.
	KindShow MediaKind = "show"
)

// Valid reports whether the kind is one of the known media kinds.
func (k MediaKind) Valid() bool {
	return k == KindMovie || k == KindShow
}

// Ref identifies a single catalog item.
type Ref struct {
	ItemID int       `json:"item_id"`
	Kind   MediaKind `json:"kind"`
}

// Key returns the cache/storage key for this reference, e.g. "movie:603".
func (r Ref) Key() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ItemID)
}

// Genre is a catalog genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CastMember is an actor credit on an item. Order is the billing position,
// zero being the lead.
type CastMember struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// CrewMember is a crew credit on an item.
type CrewMember struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Job  string `json:"job"`
}

// JobDirector is the crew job string identifying directors.
const JobDirector = "Director"

// Metadata is the catalog metadata for a single item.
type Metadata struct {
	Ref Ref `json:"ref"`

	// Title is the display title.
	Title string `json:"title"`

	// Genres are the item's catalog genres.
	Genres []Genre `json:"genres"`

	// Cast lists actor credits ordered by billing.
	Cast []CastMember `json:"cast"`

	// Crew lists crew credits.
	Crew []CrewMember `json:"crew"`

	// Rating is the external aggregate rating on a 0-10 scale.
	Rating float64 `json:"rating"`

	// Popularity is the provider's popularity metric.
	Popularity float64 `json:"popularity"`

	// ReleaseDate is the first release date; zero when unknown.
	ReleaseDate time.Time `json:"release_date"`

	// Adult flags adult-only content.
	Adult bool `json:"adult"`

	// Placeholder marks a synthetic record substituted for an item the
	// catalog no longer knows. See Placeholder().
	Placeholder bool `json:"placeholder,omitempty"`
}

// Year returns the release year, or zero when the release date is unknown.
func (m *Metadata) Year() int {
	if m.ReleaseDate.IsZero() {
		return 0
	}
	return m.ReleaseDate.Year()
}

// Decade returns the release decade label ("1990s"), or "" when unknown.
func (m *Metadata) Decade() string {
	year := m.Year()
	if year == 0 {
		return ""
	}
	return fmt.Sprintf("%ds", (year/10)*10)
}

// Directors returns the crew members credited as directors.
func (m *Metadata) Directors() []CrewMember {
	var out []CrewMember
	for _, c := range m.Crew {
		if c.Job == JobDirector {
			out = append(out, c)
		}
	}
	return out
}

// TopCast returns up to n cast members by billing order.
func (m *Metadata) TopCast(n int) []CastMember {
	if len(m.Cast) <= n {
		return m.Cast
	}
	return m.Cast[:n]
}

// Placeholder builds a synthetic metadata record for an item the catalog
// reports as not found. Training substitutes this record instead of
// dropping the rating, keeping training sets stable across catalog drift.
// The neutral 5.0 rating and empty credits dilute signal for the item;
// that is the accepted trade-off.
func Placeholder(ref Ref) *Metadata {
	return &Metadata{
		Ref:         ref,
		Title:       fmt.Sprintf("unavailable (%s)", ref.Key()),
		Rating:      5.0,
		Placeholder: true,
	}
}
