// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs Quill's recurring background jobs.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/quill/internal/quotes"
	"github.com/olegiv/quill/internal/service"
)

// EventRetention is how long event log entries are kept before the
// nightly purge removes them.
const EventRetention = 90 * 24 * time.Hour

// Scheduler handles recurring tasks: refreshing the quote-of-the-day
// cache and purging old event log entries.
type Scheduler struct {
	cron         *cron.Cron
	quoteService *quotes.Service
	eventService *service.EventService
	logger       *slog.Logger
}

// New creates a new scheduler instance.
// The quote service may be nil, in which case no refresh job is registered.
func New(db *sql.DB, quoteService *quotes.Service, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		quoteService: quoteService,
		eventService: service.NewEventService(db),
		logger:       logger,
	}
}

// Start registers the recurring jobs and begins the scheduler.
func (s *Scheduler) Start() error {
	if s.quoteService != nil {
		// Quotes rotate once a day upstream
		if _, err := s.cron.AddFunc("@daily", s.refreshQuotes); err != nil {
			return err
		}
	}

	if _, err := s.cron.AddFunc("@daily", s.purgeOldEvents); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Jobs returns the number of registered cron jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) refreshQuotes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.quoteService.Refresh(ctx)
}

func (s *Scheduler) purgeOldEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.eventService.DeleteOldEvents(ctx, EventRetention); err != nil {
		s.logger.Error("failed to purge old events", "error", err)
		return
	}
	s.logger.Info("old events purged", "retention", EventRetention.String())
}
