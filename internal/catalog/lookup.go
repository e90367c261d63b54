// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cinelens/cinelens/internal/cache"
	"github.com/cinelens/cinelens/internal/metrics"
)

// ErrNotFound indicates the catalog has no record of the requested item.
// Callers treat it specially: training substitutes a Placeholder record,
// while profile building skips the item.
var ErrNotFound = errors.New("catalog: item not found")

// Lookup fetches catalog metadata for items. Implementations are provided
// by external metadata providers; the engine only consumes this interface.
type Lookup interface {
	// Details returns metadata for the item, or ErrNotFound.
	Details(ctx context.Context, ref Ref) (*Metadata, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, ref Ref) (*Metadata, error)

// Details implements Lookup.
func (f LookupFunc) Details(ctx context.Context, ref Ref) (*Metadata, error) {
	return f(ctx, ref)
}

// CachedLookup fronts a Lookup with a bounded LRU cache.
// Not-found results are not cached; the catalog may learn about an item
// later and a retry is cheap relative to a stale negative entry.
type CachedLookup struct {
	inner Lookup
	cache *cache.LRU[*Metadata]
}

// NewCachedLookup wraps inner with the given cache.
func NewCachedLookup(inner Lookup, c *cache.LRU[*Metadata]) *CachedLookup {
	return &CachedLookup{inner: inner, cache: c}
}

// Details implements Lookup with cache-aside semantics.
func (l *CachedLookup) Details(ctx context.Context, ref Ref) (*Metadata, error) {
	if md, ok := l.cache.Get(ref.Key()); ok {
		metrics.LookupCacheHits.Inc()
		return md, nil
	}
	metrics.LookupCacheMisses.Inc()

	md, err := l.inner.Details(ctx, ref)
	if err != nil {
		return nil, err
	}
	l.cache.Add(ref.Key(), md)
	return md, nil
}

// BreakerLookup wraps a Lookup with a circuit breaker so that a failing
// metadata provider degrades to fast per-item failures instead of
// stalling every batch operation. ErrNotFound is a successful answer from
// the breaker's point of view and never trips it.
type BreakerLookup struct {
	inner   Lookup
	breaker *gobreaker.CircuitBreaker[*Metadata]
}

// BreakerConfig configures the lookup circuit breaker.
type BreakerConfig struct {
	// Name identifies the breaker instance in logs.
	Name string

	// FailureThreshold is the number of consecutive failures before
	// the breaker opens.
	FailureThreshold uint32

	// Timeout is the open-state duration before a half-open probe.
	Timeout time.Duration
}

// NewBreakerLookup wraps inner with a circuit breaker.
func NewBreakerLookup(inner Lookup, cfg BreakerConfig) *BreakerLookup {
	if cfg.Name == "" {
		cfg.Name = "catalog-lookup"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Not-found is a definitive answer, not a provider fault.
			return err == nil || errors.Is(err, ErrNotFound)
		},
	}

	return &BreakerLookup{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[*Metadata](settings),
	}
}

// Details implements Lookup through the circuit breaker.
func (l *BreakerLookup) Details(ctx context.Context, ref Ref) (*Metadata, error) {
	md, err := l.breaker.Execute(func() (*Metadata, error) {
		return l.inner.Details(ctx, ref)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.LookupErrors.WithLabelValues("breaker_open").Inc()
		return nil, fmt.Errorf("catalog lookup unavailable: %w", err)
	case errors.Is(err, ErrNotFound):
		metrics.LookupErrors.WithLabelValues("not_found").Inc()
		return nil, err
	case err != nil:
		metrics.LookupErrors.WithLabelValues("other").Inc()
		return nil, err
	}
	return md, nil
}
