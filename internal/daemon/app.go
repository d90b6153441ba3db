// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/vmerge/internal/log"
)

// Sweeper reclaims outputs and scratch directories older than maxAge.
type Sweeper interface {
	Sweep(now time.Time, maxAge time.Duration) (int, error)
}

// SweepConfig schedules the output sweeper. A zero Interval disables it.
type SweepConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// App owns the long-lived runtime lifecycle (sweeper) and delegates server
// management to Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	sweeper Sweeper
	sweep   SweepConfig
	now     func() time.Time
}

// NewApp creates a new App orchestrator. sweeper may be nil.
func NewApp(logger zerolog.Logger, manager Manager, sweeper Sweeper, sweep SweepConfig) *App {
	return &App{
		logger:  logger,
		manager: manager,
		sweeper: sweeper,
		sweep:   sweep,
		now:     time.Now,
	}
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.sweeper != nil && a.sweep.Interval > 0 {
		// One pass at startup reclaims leftovers from a previous process.
		a.sweepOnce()
		g.Go(func() error {
			ticker := time.NewTicker(a.sweep.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					a.sweepOnce()
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

func (a *App) sweepOnce() {
	if _, err := a.sweeper.Sweep(a.now(), a.sweep.Retention); err != nil {
		a.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "workspace.sweep_failed").
			Msg("output sweep failed")
	}
}
