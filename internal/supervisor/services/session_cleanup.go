// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package services

import (
	"context"
	"time"

	"github.com/neonblog/neonblog/internal/logging"
	"github.com/neonblog/neonblog/internal/metrics"
	"github.com/neonblog/neonblog/internal/session"
)

// SessionCleanupService periodically evicts expired sessions from the
// store.
type SessionCleanupService struct {
	store    session.Store
	interval time.Duration
}

// NewSessionCleanupService builds the cleanup service.
func NewSessionCleanupService(store session.Store, interval time.Duration) *SessionCleanupService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SessionCleanupService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (s *SessionCleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := s.store.CleanupExpired(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("session cleanup failed")
				continue
			}
			if removed > 0 {
				metrics.SessionsCleanedUp.Add(float64(removed))
				metrics.SessionsActive.Sub(float64(removed))
				logging.Debug().Int("removed", removed).Msg("expired sessions cleaned up")
			}
		}
	}
}

func (s *SessionCleanupService) String() string {
	return "session-cleanup"
}
