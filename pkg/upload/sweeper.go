// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/zapup/pkg/logger"
	"github.com/LeeDigitalWorks/zapup/pkg/utils"
)

// SweeperConfig configures the periodic cleanup loop.
type SweeperConfig struct {
	// Interval between sweeps. Zero or negative disables the sweeper.
	Interval time.Duration
	// Jitter is the fraction of Interval applied as random spread.
	Jitter float64
	// Timeout bounds a single sweep. Zero means Interval.
	Timeout time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: time.Hour,
		Jitter:   0.1,
	}
}

// Sweeper runs CleanupExpired periodically.
type Sweeper struct {
	manager *Manager
	config  SweeperConfig
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweeper(ctx context.Context, manager *Manager, cfg SweeperConfig) *Sweeper {
	ctx, cancel := context.WithCancel(ctx)
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	return &Sweeper{
		manager: manager,
		config:  cfg,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Sweeper) Start() {
	if s.config.Interval <= 0 {
		logger.Info().Msg("Temporary object sweeper disabled")
		return
	}

	s.wg.Add(1)
	go s.loop()

	logger.Info().
		Dur("interval", s.config.Interval).
		Dur("retention", s.manager.settings.TempRetention).
		Msg("Started temporary object sweeper")
}

// Stop cancels a running sweep and waits for the loop to exit.
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	for range utils.JitteredTicker(s.ctx, s.config.Interval, s.config.Jitter) {
		_, _ = s.RunOnce()
	}
}

// RunOnce performs a single sweep bounded by the configured timeout.
func (s *Sweeper) RunOnce() (int, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.config.Timeout)
	defer cancel()
	return s.manager.CleanupExpired(ctx, s.now())
}
