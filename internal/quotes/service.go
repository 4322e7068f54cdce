// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/olegiv/quill/internal/cache"
)

// cacheKey is the cache key for the quote of the day.
const cacheKey = "quotes:qod"

// Service provides cached access to the quote of the day.
type Service struct {
	client *Client
	cache  cache.Cache
	ttl    time.Duration
}

// NewService creates a quote service backed by the given cache.
func NewService(client *Client, c cache.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		client: client,
		cache:  c,
		ttl:    ttl,
	}
}

// Get returns the quote of the day, preferring the cache.
// It never returns an error: a failed fetch logs a warning and yields
// an empty slice so pages render without quotes.
func (s *Service) Get(ctx context.Context) []Quote {
	if data, err := s.cache.Get(ctx, cacheKey); err == nil {
		var quotes []Quote
		if err := json.Unmarshal(data, &quotes); err == nil {
			return quotes
		}
		// Corrupt cache entry: drop it and refetch
		_ = s.cache.Delete(ctx, cacheKey)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		slog.Warn("quote cache read failed", "error", err)
	}

	quotes, err := s.client.Fetch(ctx)
	if err != nil {
		slog.Warn("quote fetch failed", "error", err)
		return nil
	}
	if len(quotes) == 0 {
		slog.Warn("quote API returned no quotes")
		return nil
	}

	s.store(ctx, quotes)
	return quotes
}

// Refresh fetches fresh quotes and updates the cache.
// Used by the scheduler; failures are logged, never fatal.
func (s *Service) Refresh(ctx context.Context) {
	quotes, err := s.client.Fetch(ctx)
	if err != nil {
		slog.Warn("quote refresh failed", "error", err)
		return
	}
	if len(quotes) == 0 {
		slog.Warn("quote refresh returned no quotes")
		return
	}

	s.store(ctx, quotes)
	slog.Info("quote of the day refreshed", "count", len(quotes))
}

func (s *Service) store(ctx context.Context, quotes []Quote) {
	data, err := json.Marshal(quotes)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, data, s.ttl); err != nil {
		slog.Warn("quote cache write failed", "error", err)
	}
}
