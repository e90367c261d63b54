// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "absent"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get(absent) error = %v, want ErrKeyNotFound", err)
	}

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want v", got)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrKeyNotFound", err)
	}

	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete(absent) = %v, want nil", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type state struct {
		Rate  float64 `json:"rate"`
		Count int     `json:"count"`
	}

	in := state{Rate: 0.1, Count: 42}
	if err := s.SetJSON(ctx, KeyAdaptiveConfig, in); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	var out state
	if err := s.GetJSON(ctx, KeyAdaptiveConfig, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestGetJSONMissingKeyLeavesOutUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	out := map[string]int{"default": 1}
	err := s.GetJSON(ctx, "absent", &out)
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("GetJSON(absent) error = %v, want ErrKeyNotFound", err)
	}
	if out["default"] != 1 {
		t.Error("out modified on missing key; caller defaults must survive")
	}
}

func TestWipeRemovesEngineKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, k := range []string{KeyRatings, KeyProfile, KeyNeuralModel, KeyLearningEvents, KeyAdaptiveConfig} {
		if err := s.Set(ctx, k, []byte("x")); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	if err := s.Wipe(ctx); err != nil {
		t.Fatalf("Wipe: %v", err)
	}

	for _, k := range []string{KeyRatings, KeyProfile, KeyNeuralModel, KeyLearningEvents, KeyAdaptiveConfig} {
		if _, err := s.Get(ctx, k); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("Get(%s) after Wipe error = %v, want ErrKeyNotFound", k, err)
		}
	}
}

func TestContextCancellation(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Get(ctx, "k"); err == nil {
		t.Error("Get with cancelled context should fail")
	}
	if err := s.Set(ctx, "k", []byte("v")); err == nil {
		t.Error("Set with cancelled context should fail")
	}
}
