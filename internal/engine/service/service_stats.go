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

package service

import (
	"context"
	"strconv"
	"time"

	"github.com/printforge/printforge/internal/engine/model"
	"github.com/printforge/printforge/internal/engine/repo"
	"github.com/printforge/printforge/pkg/event"
	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/metrics"
)

// DashboardStats are the aggregate counts for a brand's dashboard.
type DashboardStats struct {
	TotalOrders         int64 `json:"totalOrders"`
	PipelinesInProgress int64 `json:"pipelinesInProgress"`
	CompletedToday      int64 `json:"completedToday"`
	OpenErrorsToday     int64 `json:"openErrorsToday"`
}

// Alert is one recent failure surfaced to operators.
type Alert struct {
	PipelineId string    `json:"pipelineId"`
	Stage      string    `json:"stage"`
	Message    string    `json:"message"`
	Retryable  bool      `json:"retryable"`
	RetryCount int       `json:"retryCount"`
	Resolved   bool      `json:"resolved"`
	CreatedAt  time.Time `json:"createdAt"`
}

// StatsService serves read-only observability queries and keeps the
// prometheus pipeline collectors fed from bus events.
type StatsService struct {
	pipelineRepo repo.IPipelineRepository
	orderRepo    repo.IOrderRepository
	bus          *event.Bus
	collectors   *metrics.PipelineMetrics
}

// NewStatsService creates the observability service.
func NewStatsService(services *Services, collectors *metrics.PipelineMetrics) *StatsService {
	return &StatsService{
		pipelineRepo: services.Repos.Pipeline,
		orderRepo:    services.Repos.Order,
		bus:          services.Bus,
		collectors:   collectors,
	}
}

// GetDashboardStats aggregates brand counts. Empty data returns zeros,
// never an error.
func (s *StatsService) GetDashboardStats(ctx context.Context, brandId string) (*DashboardStats, error) {
	startOfDay := time.Now().Truncate(24 * time.Hour)

	totalOrders, err := s.orderRepo.CountByBrand(ctx, brandId)
	if err != nil {
		return nil, err
	}
	inProgress, err := s.pipelineRepo.CountByStatus(ctx, brandId, model.PipelineStatusInProgress)
	if err != nil {
		return nil, err
	}
	completedToday, err := s.pipelineRepo.CountCompletedSince(ctx, brandId, startOfDay)
	if err != nil {
		return nil, err
	}
	openErrors, err := s.pipelineRepo.CountOpenErrorsSince(ctx, brandId, startOfDay)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalOrders:         totalOrders,
		PipelinesInProgress: inProgress,
		CompletedToday:      completedToday,
		OpenErrorsToday:     openErrors,
	}, nil
}

// GetRecentAlerts returns the newest failure records for a brand.
func (s *StatsService) GetRecentAlerts(ctx context.Context, brandId string, limit int) ([]Alert, error) {
	errs, err := s.pipelineRepo.ListRecentErrors(ctx, brandId, limit)
	if err != nil {
		return nil, err
	}
	alerts := make([]Alert, len(errs))
	for i, e := range errs {
		alerts[i] = Alert{
			PipelineId: e.PipelineId,
			Stage:      e.Stage,
			Message:    e.Message,
			Retryable:  e.Retryable,
			RetryCount: e.RetryCount,
			Resolved:   e.ResolvedAt != nil,
			CreatedAt:  e.CreateTime,
		}
	}
	return alerts, nil
}

// SweepStale flags in-progress pipelines untouched past the threshold.
// Detection only; remediation stays with operators.
func (s *StatsService) SweepStale(ctx context.Context, threshold time.Time, limit int) (int, error) {
	stale, err := s.pipelineRepo.ListStale(ctx, threshold, limit)
	if err != nil {
		return 0, err
	}
	for _, p := range stale {
		log.Warnw("stale pipeline detected",
			"pipelineId", p.PipelineId, "orderId", p.OrderId,
			"stage", p.CurrentStage, "updatedAt", p.UpdateTime)
	}
	if s.collectors != nil {
		s.collectors.Stale.Set(float64(len(stale)))
	}
	return len(stale), nil
}

// RegisterEventHandlers feeds the prometheus collectors from bus events.
// Read-only with respect to pipeline state.
func (s *StatsService) RegisterEventHandlers() {
	if s.collectors == nil {
		return
	}
	s.bus.RegisterHandlerFunc(EventPipelineStarted, func(event.Event) {
		s.collectors.InProgress.Inc()
	})
	s.bus.RegisterHandlerFunc(EventStageCompleted, func(evt event.Event) {
		if e, ok := evt.(StageCompletedEvent); ok && e.NextStage != "" {
			s.collectors.Transitions.WithLabelValues(e.Stage, e.NextStage, model.TriggeredBySystem).Inc()
			s.collectors.StageDuration.WithLabelValues(e.Stage).Observe(float64(e.DurationMs) / 1000)
		}
	})
	s.bus.RegisterHandlerFunc(EventStageFailed, func(evt event.Event) {
		if e, ok := evt.(StageFailedEvent); ok {
			s.collectors.Failures.WithLabelValues(e.Stage, strconv.FormatBool(e.Retryable)).Inc()
		}
	})
	s.bus.RegisterHandlerFunc(EventPipelineCompleted, func(event.Event) {
		s.collectors.Completed.Inc()
		s.collectors.InProgress.Dec()
	})
	s.bus.RegisterHandlerFunc(EventPipelineFailed, func(event.Event) {
		s.collectors.InProgress.Dec()
	})
	s.bus.RegisterHandlerFunc(EventPipelineCancelled, func(event.Event) {
		s.collectors.Cancelled.Inc()
		s.collectors.InProgress.Dec()
	})
}
