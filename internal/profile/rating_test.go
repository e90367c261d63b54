// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package profile

import (
	"testing"
	"time"

	"github.com/cinelens/cinelens/internal/catalog"
)

func TestValueValid(t *testing.T) {
	tests := []struct {
		value Value
		want  bool
	}{
		{1, true},
		{10, true},
		{5, true},
		{0, false},
		{11, false},
		{ValueNotWatched, false},
		{ValueNotInterested, false},
		{ValueSkip, false},
	}
	for _, tt := range tests {
		t.Run(tt.value.String(), func(t *testing.T) {
			if got := tt.value.Valid(); got != tt.want {
				t.Errorf("Value(%d).Valid() = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValueExtreme(t *testing.T) {
	for v := Value(1); v <= 10; v++ {
		want := v == 1 || v == 10
		if got := v.Extreme(); got != want {
			t.Errorf("Value(%d).Extreme() = %v, want %v", v, got, want)
		}
	}
}

func TestUpsertReplacesNotDuplicates(t *testing.T) {
	ref := catalog.Ref{ItemID: 1, Kind: catalog.KindMovie}
	var ratings []Rating

	ratings, old := Upsert(ratings, Rating{Ref: ref, Value: 7})
	if old != nil {
		t.Error("first Upsert should report no previous rating")
	}
	if len(ratings) != 1 {
		t.Fatalf("len = %d, want 1", len(ratings))
	}

	ratings, old = Upsert(ratings, Rating{Ref: ref, Value: 9})
	if old == nil || old.Value != 7 {
		t.Errorf("second Upsert old = %+v, want previous value 7", old)
	}
	if len(ratings) != 1 {
		t.Errorf("len after re-rate = %d, want 1 (replace, never duplicate)", len(ratings))
	}
	if ratings[0].Value != 9 {
		t.Errorf("value = %d, want 9", ratings[0].Value)
	}

	// Same item ID under a different media kind is a distinct rating.
	showRef := catalog.Ref{ItemID: 1, Kind: catalog.KindShow}
	ratings, _ = Upsert(ratings, Rating{Ref: showRef, Value: 3})
	if len(ratings) != 2 {
		t.Errorf("len = %d, want 2 (distinct per media kind)", len(ratings))
	}
}

func TestRemove(t *testing.T) {
	ref := catalog.Ref{ItemID: 1, Kind: catalog.KindMovie}
	ratings := []Rating{{Ref: ref, Value: 7}}

	ratings, old := Remove(ratings, ref)
	if old == nil || old.Value != 7 {
		t.Errorf("Remove old = %+v, want value 7", old)
	}
	if len(ratings) != 0 {
		t.Errorf("len = %d, want 0", len(ratings))
	}

	_, old = Remove(ratings, ref)
	if old != nil {
		t.Error("Remove of absent rating should report nil")
	}
}

func TestValidFiltersSentinels(t *testing.T) {
	now := time.Now()
	ratings := []Rating{
		{Ref: catalog.Ref{ItemID: 1, Kind: catalog.KindMovie}, Value: 8, Timestamp: now},
		{Ref: catalog.Ref{ItemID: 2, Kind: catalog.KindMovie}, Value: ValueNotWatched, Timestamp: now},
		{Ref: catalog.Ref{ItemID: 3, Kind: catalog.KindMovie}, Value: ValueSkip, Timestamp: now},
		{Ref: catalog.Ref{ItemID: 4, Kind: catalog.KindShow}, Value: 2, Timestamp: now},
		{Ref: catalog.Ref{ItemID: 5, Kind: catalog.KindShow}, Value: ValueNotInterested, Timestamp: now},
	}

	valid := Valid(ratings)
	if len(valid) != 2 {
		t.Fatalf("Valid len = %d, want 2", len(valid))
	}
	if AverageValue(ratings) != 5.0 {
		t.Errorf("AverageValue = %f, want 5.0 (sentinels excluded)", AverageValue(ratings))
	}
}

func TestAverageValueNoValid(t *testing.T) {
	ratings := []Rating{{Value: ValueSkip}}
	if got := AverageValue(ratings); got != 0 {
		t.Errorf("AverageValue = %f, want 0", got)
	}
}
