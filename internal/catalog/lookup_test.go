// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinelens/cinelens/internal/cache"
)

func mdFor(ref Ref) *Metadata {
	return &Metadata{
		Ref:         ref,
		Title:       fmt.Sprintf("item %d", ref.ItemID),
		Genres:      []Genre{{ID: 28, Name: "Action"}},
		Rating:      7.5,
		ReleaseDate: time.Date(1999, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestMetadataDerivedFields(t *testing.T) {
	md := mdFor(Ref{ItemID: 603, Kind: KindMovie})
	if got := md.Year(); got != 1999 {
		t.Errorf("Year = %d, want 1999", got)
	}
	if got := md.Decade(); got != "1990s" {
		t.Errorf("Decade = %q, want 1990s", got)
	}

	empty := &Metadata{}
	if empty.Year() != 0 {
		t.Errorf("Year of zero date = %d, want 0", empty.Year())
	}
	if empty.Decade() != "" {
		t.Errorf("Decade of zero date = %q, want empty", empty.Decade())
	}
}

func TestMetadataCredits(t *testing.T) {
	md := &Metadata{
		Cast: []CastMember{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
		Crew: []CrewMember{
			{ID: 10, Job: JobDirector},
			{ID: 11, Job: "Writer"},
			{ID: 12, Job: JobDirector},
		},
	}

	if got := len(md.TopCast(3)); got != 3 {
		t.Errorf("TopCast(3) len = %d, want 3", got)
	}
	if got := len(md.TopCast(10)); got != 4 {
		t.Errorf("TopCast(10) len = %d, want 4", got)
	}

	dirs := md.Directors()
	if len(dirs) != 2 {
		t.Fatalf("Directors len = %d, want 2", len(dirs))
	}
	if dirs[0].ID != 10 || dirs[1].ID != 12 {
		t.Errorf("Directors = %+v, want IDs 10 and 12", dirs)
	}
}

func TestPlaceholder(t *testing.T) {
	ref := Ref{ItemID: 42, Kind: KindShow}
	md := Placeholder(ref)

	if !md.Placeholder {
		t.Error("Placeholder flag not set")
	}
	if md.Rating != 5.0 {
		t.Errorf("placeholder rating = %f, want neutral 5.0", md.Rating)
	}
	if len(md.Genres) != 0 || len(md.Cast) != 0 {
		t.Error("placeholder must have empty genres and cast")
	}
	if md.Ref != ref {
		t.Errorf("placeholder ref = %+v, want %+v", md.Ref, ref)
	}
}

func TestCachedLookup(t *testing.T) {
	var calls atomic.Int64
	inner := LookupFunc(func(ctx context.Context, ref Ref) (*Metadata, error) {
		calls.Add(1)
		if ref.ItemID == 404 {
			return nil, ErrNotFound
		}
		return mdFor(ref), nil
	})

	cl := NewCachedLookup(inner, cache.NewLRU[*Metadata](10, time.Minute))
	ctx := context.Background()
	ref := Ref{ItemID: 1, Kind: KindMovie}

	for i := 0; i < 3; i++ {
		if _, err := cl.Details(ctx, ref); err != nil {
			t.Fatalf("Details: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("provider calls = %d, want 1 (cached)", calls.Load())
	}

	// Not-found is not cached.
	missing := Ref{ItemID: 404, Kind: KindMovie}
	for i := 0; i < 2; i++ {
		if _, err := cl.Details(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Details(missing) error = %v, want ErrNotFound", err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("provider calls = %d, want 3 (not-found uncached)", calls.Load())
	}
}

func TestBreakerLookupOpensOnConsecutiveFailures(t *testing.T) {
	providerErr := errors.New("provider down")
	var calls atomic.Int64
	inner := LookupFunc(func(ctx context.Context, ref Ref) (*Metadata, error) {
		calls.Add(1)
		return nil, providerErr
	})

	bl := NewBreakerLookup(inner, BreakerConfig{FailureThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()
	ref := Ref{ItemID: 1, Kind: KindMovie}

	for i := 0; i < 3; i++ {
		if _, err := bl.Details(ctx, ref); err == nil {
			t.Fatal("expected failure")
		}
	}
	before := calls.Load()

	// Breaker is now open: the provider must not be hit again.
	if _, err := bl.Details(ctx, ref); err == nil {
		t.Fatal("expected open-breaker failure")
	}
	if calls.Load() != before {
		t.Errorf("provider called while breaker open (%d -> %d)", before, calls.Load())
	}
}

func TestBreakerLookupNotFoundDoesNotTrip(t *testing.T) {
	inner := LookupFunc(func(ctx context.Context, ref Ref) (*Metadata, error) {
		return nil, ErrNotFound
	})

	bl := NewBreakerLookup(inner, BreakerConfig{FailureThreshold: 2, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := bl.Details(ctx, Ref{ItemID: i, Kind: KindMovie})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d: error = %v, want ErrNotFound (breaker must stay closed)", i, err)
		}
	}
}

func TestBatchFetcherPartitionsOutcomes(t *testing.T) {
	inner := LookupFunc(func(ctx context.Context, ref Ref) (*Metadata, error) {
		switch {
		case ref.ItemID%3 == 0:
			return nil, ErrNotFound
		case ref.ItemID%3 == 1:
			return mdFor(ref), nil
		default:
			return nil, errors.New("transient")
		}
	})

	f := NewBatchFetcher(inner, 5, time.Millisecond, zerolog.Nop())

	refs := make([]Ref, 12)
	for i := range refs {
		refs[i] = Ref{ItemID: i, Kind: KindMovie}
	}

	res, err := f.Fetch(context.Background(), refs)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Resolved) != 4 {
		t.Errorf("Resolved = %d, want 4", len(res.Resolved))
	}
	if len(res.NotFound) != 4 {
		t.Errorf("NotFound = %d, want 4", len(res.NotFound))
	}
	if len(res.Failed) != 4 {
		t.Errorf("Failed = %d, want 4", len(res.Failed))
	}
}

func TestBatchFetcherHonorsCancellation(t *testing.T) {
	inner := LookupFunc(func(ctx context.Context, ref Ref) (*Metadata, error) {
		return mdFor(ref), nil
	})
	f := NewBatchFetcher(inner, 2, 50*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	refs := make([]Ref, 10)
	for i := range refs {
		refs[i] = Ref{ItemID: i, Kind: KindMovie}
	}
	if _, err := f.Fetch(ctx, refs); err == nil {
		t.Error("Fetch with cancelled context should fail")
	}
}
