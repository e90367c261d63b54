// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package store provides durable key-value persistence for the engine,
// backed by BadgerDB. The engine stores its state under a small set of
// namespaced keys: ratings, profile, neural-model, learning-events, and
// adaptive-config. No schema versioning is enforced here; callers own
// migration.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/cinelens/cinelens/internal/metrics"
)

// keyPrefix namespaces all engine keys in the shared Badger database.
const keyPrefix = "cinelens:"

// Well-known keys used by the engine.
const (
	KeyRatings        = "ratings"
	KeyProfile        = "profile"
	KeyNeuralModel    = "neural-model"
	KeyLearningEvents = "learning-events"
	KeyAdaptiveConfig = "adaptive-config"
)

// ErrKeyNotFound indicates the requested key has no stored value.
var ErrKeyNotFound = errors.New("store: key not found")

// Store is a BadgerDB-backed key-value store for engine state.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (or creates) a Badger database at the given directory.
func Open(dir string, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// OpenInMemory opens an in-memory Badger database. Used in tests and for
// ephemeral sessions where durability is not wanted.
func OpenInMemory(logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value stored under key, or ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	switch {
	case errors.Is(err, ErrKeyNotFound):
		metrics.StoreOperations.WithLabelValues("get", "miss").Inc()
		return nil, err
	case err != nil:
		metrics.StoreOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}
	metrics.StoreOperations.WithLabelValues("get", "ok").Inc()
	return value, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), value)
	})
	if err != nil {
		metrics.StoreOperations.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("set %s: %w", key, err)
	}
	metrics.StoreOperations.WithLabelValues("set", "ok").Inc()
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
	if err != nil {
		metrics.StoreOperations.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("delete %s: %w", key, err)
	}
	metrics.StoreOperations.WithLabelValues("delete", "ok").Inc()
	return nil
}

// GetJSON loads and unmarshals the value under key into out.
// A missing key returns ErrKeyNotFound with out untouched, so callers can
// fall back to defaults.
func (s *Store) GetJSON(ctx context.Context, key string, out any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals value and stores it under key.
func (s *Store) SetJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// BestEffortSetJSON persists value under key, logging instead of returning
// on failure. Persistence writes in the engine are best-effort: a failed
// write must not abort the operation that produced the state.
func (s *Store) BestEffortSetJSON(ctx context.Context, key string, value any) {
	if err := s.SetJSON(ctx, key, value); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("best-effort persistence write failed")
	}
}

// Wipe removes all well-known engine keys. Used by explicit data-clear.
func (s *Store) Wipe(ctx context.Context) error {
	keys := []string{KeyRatings, KeyProfile, KeyNeuralModel, KeyLearningEvents, KeyAdaptiveConfig}
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
