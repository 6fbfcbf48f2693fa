// Copyright 2026 Printforge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scheduler

import (
	"context"
	"time"

	"github.com/google/wire"
	"github.com/printforge/printforge/internal/engine/config"
	"github.com/printforge/printforge/internal/engine/service"
	"github.com/printforge/printforge/pkg/log"
	"github.com/robfig/cron"
)

// ProviderSet provides the sweep scheduler.
var ProviderSet = wire.NewSet(NewScheduler)

// Scheduler runs the periodic staleness sweep. Detection only, no
// remediation.
type Scheduler struct {
	cron  *cron.Cron
	stats *service.StatsService
	conf  config.EngineConfig
}

// NewScheduler creates the sweep scheduler.
func NewScheduler(stats *service.StatsService, conf config.EngineConfig) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		stats: stats,
		conf:  conf,
	}
}

// Start registers and launches the sweep job.
func (s *Scheduler) Start() error {
	err := s.cron.AddFunc(s.conf.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		threshold := time.Now().Add(-time.Duration(s.conf.StalenessMinutes) * time.Minute)
		n, err := s.stats.SweepStale(ctx, threshold, 500)
		if err != nil {
			log.Errorw("staleness sweep failed", "error", err)
			return
		}
		if n > 0 {
			log.Warnw("staleness sweep found stuck pipelines", "count", n)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Infow("scheduler started", "sweepSchedule", s.conf.SweepSchedule)
	return nil
}

// Stop halts the cron loop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
