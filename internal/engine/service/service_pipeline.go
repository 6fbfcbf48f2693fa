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
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/printforge/printforge/internal/engine/model"
	"github.com/printforge/printforge/internal/engine/repo"
	"github.com/printforge/printforge/internal/pkg/pipeline"
	"github.com/printforge/printforge/pkg/id"
	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/serde"
	"gorm.io/gorm"
)

// PipelineService is the sole writer of pipeline state. Every mutation
// persists first and publishes after, so observers never see phantom state.
type PipelineService struct {
	*Services
	pipelineRepo repo.IPipelineRepository
}

// NewPipelineService creates the pipeline orchestrator.
func NewPipelineService(services *Services) *PipelineService {
	return &PipelineService{
		Services:     services,
		pipelineRepo: services.Repos.Pipeline,
	}
}

// CreatePipeline inserts a new pipeline in CREATED state with the frozen
// stage plan. The caller checks order-level idempotency first.
func (s *PipelineService) CreatePipeline(ctx context.Context, orderId, brandId string, stages []model.StageDefinition, metadata map[string]any) (*model.Pipeline, error) {
	if _, err := s.pipelineRepo.GetByOrderId(ctx, orderId); err == nil {
		return nil, ErrPipelineExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	stagesJSON, err := sonic.Marshal(stages)
	if err != nil {
		return nil, err
	}
	metadataJSON := serde.MarshalAnyMap(metadata)

	stageIds := make([]string, len(stages))
	for i, st := range stages {
		stageIds[i] = st.Id
	}
	estimated := s.Estimates.EstimateCompletion(stageIds, time.Now())

	p := &model.Pipeline{
		PipelineId:          id.GetUlid(),
		OrderId:             orderId,
		BrandId:             brandId,
		Stages:              stagesJSON,
		CurrentStage:        stages[0].Id,
		Progress:            0,
		Status:              model.PipelineStatusCreated,
		Version:             0,
		Metadata:            metadataJSON,
		EstimatedCompletion: &estimated,
	}
	if err := s.pipelineRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	log.Infow("pipeline created", "pipelineId", p.PipelineId, "orderId", orderId, "stages", stageIds)
	s.publish(ctx, PipelineCreatedEvent{
		PipelineId: p.PipelineId,
		OrderId:    orderId,
		BrandId:    brandId,
		Stages:     stageIds,
	})
	return p, nil
}

// StartPipeline moves a CREATED pipeline into IN_PROGRESS and announces its
// first stage.
func (s *PipelineService) StartPipeline(ctx context.Context, pipelineId string) (*model.Pipeline, error) {
	p, err := s.get(ctx, pipelineId)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]any{
		"status":     model.PipelineStatusInProgress,
		"started_at": now,
	}
	if err := s.pipelineRepo.Update(ctx, pipelineId, updates); err != nil {
		return nil, err
	}
	if _, err := s.recordTransition(ctx, p, pipeline.StageCreated, p.CurrentStage, model.TriggeredBySystem); err != nil {
		return nil, err
	}

	p.Status = model.PipelineStatusInProgress
	p.StartedAt = &now

	s.publish(ctx, PipelineStartedEvent{
		PipelineId: p.PipelineId,
		OrderId:    p.OrderId,
		FirstStage: p.CurrentStage,
	})
	s.publish(ctx, StageStartedEvent{
		PipelineId: p.PipelineId,
		OrderId:    p.OrderId,
		Stage:      p.CurrentStage,
	})
	return p, nil
}

// AdvanceStage moves the pipeline to the next positional stage, or to an
// explicit target within the stage plan. Past the last stage it delegates to
// CompletePipeline. The write is a compare-and-swap on version; losing the
// race returns ErrConcurrentModification and the caller must reload.
func (s *PipelineService) AdvanceStage(ctx context.Context, pipelineId, targetStage, triggeredBy string) (*model.Pipeline, error) {
	p, err := s.get(ctx, pipelineId)
	if err != nil {
		return nil, err
	}
	if model.IsTerminalStatus(p.Status) {
		return nil, ErrPipelineTerminal
	}

	stages, err := s.decodeStages(p)
	if err != nil {
		return nil, err
	}
	currentIdx := stageIndex(stages, p.CurrentStage)

	var nextStage string
	var nextIdx int
	if targetStage != "" {
		nextIdx = stageIndex(stages, targetStage)
		if nextIdx < 0 {
			return nil, ErrInvalidTargetStage
		}
		nextStage = targetStage
	} else {
		nextIdx = currentIdx + 1
		if currentIdx < 0 || nextIdx >= len(stages) {
			return s.CompletePipeline(ctx, pipelineId)
		}
		nextStage = stages[nextIdx].Id
	}

	// Advisory check only: positional advancement through the frozen plan
	// is authoritative, the graph flags anomalies for operators.
	if err := pipeline.ValidateTransition(p.CurrentStage, nextStage); err != nil {
		log.Warnw("advancing outside the stage graph",
			"pipelineId", pipelineId, "from", p.CurrentStage, "to", nextStage)
	}

	progress := pipeline.Progress(nextIdx, len(stages))
	affected, err := s.pipelineRepo.UpdateWhereVersion(ctx, pipelineId, p.Version, map[string]any{
		"current_stage": nextStage,
		"progress":      progress,
		"version":       p.Version + 1,
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConcurrentModification
	}

	duration, err := s.recordTransition(ctx, p, p.CurrentStage, nextStage, triggeredBy)
	if err != nil {
		return nil, err
	}

	prevStage := p.CurrentStage
	p.CurrentStage = nextStage
	p.Progress = progress
	p.Version++

	s.publish(ctx, StageCompletedEvent{
		PipelineId: p.PipelineId,
		OrderId:    p.OrderId,
		Stage:      prevStage,
		NextStage:  nextStage,
		DurationMs: duration,
	})
	s.publish(ctx, StageStartedEvent{
		PipelineId: p.PipelineId,
		OrderId:    p.OrderId,
		Stage:      nextStage,
	})
	return p, nil
}

// RetryStage re-enters the current stage after a failure: bumps retry
// counters on open errors, resets FAILED back to IN_PROGRESS and announces
// the stage again with the retry flag. Re-enqueueing work is the domain
// orchestrator's job.
func (s *PipelineService) RetryStage(ctx context.Context, pipelineId string) (*model.Pipeline, error) {
	p, err := s.get(ctx, pipelineId)
	if err != nil {
		return nil, err
	}

	if err := s.pipelineRepo.IncrementOpenErrorRetries(ctx, pipelineId, p.CurrentStage); err != nil {
		return nil, err
	}
	if p.Status == model.PipelineStatusFailed {
		if err := s.pipelineRepo.Update(ctx, pipelineId, map[string]any{
			"status": model.PipelineStatusInProgress,
		}); err != nil {
			return nil, err
		}
		p.Status = model.PipelineStatusInProgress
	}

	s.publish(ctx, StageStartedEvent{
		PipelineId: p.PipelineId,
		OrderId:    p.OrderId,
		Stage:      p.CurrentStage,
		Retry:      true,
	})
	return p, nil
}

// RollbackStage moves the pipeline backward to targetStage, or to the
// immediately preceding stage. Administrative path, so the write is
// unconditional rather than version-checked.
func (s *PipelineService) RollbackStage(ctx context.Context, pipelineId, targetStage string) (*model.Pipeline, error) {
	p, err := s.get(ctx, pipelineId)
	if err != nil {
		return nil, err
	}

	stages, err := s.decodeStages(p)
	if err != nil {
		return nil, err
	}
	currentIdx := stageIndex(stages, p.CurrentStage)

	var backIdx int
	if targetStage != "" {
		backIdx = stageIndex(stages, targetStage)
		if backIdx < 0 || backIdx >= currentIdx {
			return nil, ErrInvalidRollbackTarget
		}
	} else {
		if currentIdx <= 0 {
			return nil, ErrCannotRollback
		}
		backIdx = currentIdx - 1
	}
	backStage := stages[backIdx].Id
	progress := pipeline.Progress(backIdx, len(stages))

	if err := s.pipelineRepo.Update(ctx, pipelineId, map[string]any{
		"current_stage": backStage,
		"progress":      progress,
		"version":       p.Version + 1,
	}); err != nil {
		return nil, err
	}
	if _, err := s.recordTransition(ctx, p, p.CurrentStage, backStage, model.TriggeredByRollback); err != nil {
		return nil, err
	}

	fromStage := p.CurrentStage
	p.CurrentStage = backStage
	p.Progress = progress
	p.Version++

	s.publish(ctx, PipelineRollbackEvent{
		PipelineId: p.PipelineId,
		OrderId:    p.OrderId,
		FromStage:  fromStage,
		ToStage:    backStage,
	})
	return p, nil
}

// CompletePipeline marks the terminal success state and resolves any open
// errors left behind by earlier retries.
func (s *PipelineService) CompletePipeline(ctx context.Context, pipelineId string) (*model.Pipeline, error) {
	p, err := s.get(ctx, pipelineId)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.pipelineRepo.Update(ctx, pipelineId, map[string]any{
		"current_stage": pipeline.StageCompleted,
		"progress":      100,
		"status":        model.PipelineStatusCompleted,
		"completed_at":  now,
	}); err != nil {
		return nil, err
	}
	if _, err := s.recordTransition(ctx, p, p.CurrentStage, pipeline.StageCompleted, model.TriggeredBySystem); err != nil {
		return nil, err
	}
	if err := s.pipelineRepo.ResolveOpenErrors(ctx, pipelineId, now); err != nil {
		log.Warnw("resolve open errors failed", "pipelineId", pipelineId, "error", err)
	}

	p.CurrentStage = pipeline.StageCompleted
	p.Progress = 100
	p.Status = model.PipelineStatusCompleted
	p.CompletedAt = &now

	log.Infow("pipeline completed", "pipelineId", pipelineId, "orderId", p.OrderId)
	s.publish(ctx, PipelineCompletedEvent{
		PipelineId: p.PipelineId,
		OrderId:    p.OrderId,
	})
	return p, nil
}

// FailPipeline records a non-retryable error and moves the pipeline to the
// FAILED terminal state.
func (s *PipelineService) FailPipeline(ctx context.Context, pipelineId, errMsg, stage string) (*model.Pipeline, error) {
	p, err := s.get(ctx, pipelineId)
	if err != nil {
		return nil, err
	}
	if stage == "" {
		stage = p.CurrentStage
	}

	if err := s.pipelineRepo.CreateError(ctx, &model.PipelineError{
		PipelineId: pipelineId,
		Stage:      stage,
		Message:    errMsg,
		Retryable:  false,
	}); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.pipelineRepo.Update(ctx, pipelineId, map[string]any{
		"status":    model.PipelineStatusFailed,
		"failed_at": now,
	}); err != nil {
		return nil, err
	}
	if _, err := s.recordTransition(ctx, p, p.CurrentStage, pipeline.StageFailed, model.TriggeredBySystem); err != nil {
		return nil, err
	}

	p.Status = model.PipelineStatusFailed
	p.FailedAt = &now

	log.Warnw("pipeline failed", "pipelineId", pipelineId, "stage", stage, "error", errMsg)
	s.publish(ctx, PipelineFailedEvent{
		PipelineId: p.PipelineId,
		OrderId:    p.OrderId,
		Stage:      stage,
		Error:      errMsg,
	})
	return p, nil
}

// CancelPipeline aborts a non-terminal pipeline and stores the reason in
// metadata. Terminal pipelines are immutable; the attempt fails with
// ErrCannotCancel and writes nothing.
func (s *PipelineService) CancelPipeline(ctx context.Context, pipelineId, reason string) (*model.Pipeline, error) {
	p, err := s.get(ctx, pipelineId)
	if err != nil {
		return nil, err
	}
	if model.IsTerminalStatus(p.Status) {
		return nil, ErrCannotCancel
	}

	metadata := serde.UnmarshalAnyMap(p.Metadata)
	if reason != "" {
		metadata["cancellationReason"] = reason
	}
	metadataJSON := serde.MarshalAnyMap(metadata)

	now := time.Now()
	if err := s.pipelineRepo.Update(ctx, pipelineId, map[string]any{
		"status":       model.PipelineStatusCancelled,
		"cancelled_at": now,
		"metadata":     metadataJSON,
	}); err != nil {
		return nil, err
	}
	if _, err := s.recordTransition(ctx, p, p.CurrentStage, pipeline.StageCancelled, model.TriggeredByManual); err != nil {
		return nil, err
	}

	p.Status = model.PipelineStatusCancelled
	p.CancelledAt = &now
	p.Metadata = metadataJSON

	log.Infow("pipeline cancelled", "pipelineId", pipelineId, "reason", reason)
	s.publish(ctx, PipelineCancelledEvent{
		PipelineId: p.PipelineId,
		OrderId:    p.OrderId,
		Reason:     reason,
	})
	return p, nil
}

// StageStatus is the per-stage projection returned by GetPipelineStatus.
type StageStatus struct {
	Id          string `json:"id"`
	DisplayName string `json:"displayName"`
	Status      string `json:"status"` // completed | current | failed | pending
}

// PipelineStatus is the read projection for dashboards.
type PipelineStatus struct {
	Pipeline    *model.Pipeline             `json:"pipeline"`
	Stages      []StageStatus               `json:"stages"`
	Transitions []*model.PipelineTransition `json:"transitions"`
	OpenErrors  []*model.PipelineError      `json:"openErrors"`
}

// GetPipelineStatus returns the tenant-scoped status projection.
func (s *PipelineService) GetPipelineStatus(ctx context.Context, pipelineId, brandId string) (*PipelineStatus, error) {
	p, err := s.pipelineRepo.GetScoped(ctx, pipelineId, brandId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPipelineNotFound
		}
		return nil, err
	}

	stages, err := s.decodeStages(p)
	if err != nil {
		return nil, err
	}
	currentIdx := stageIndex(stages, p.CurrentStage)

	stageStatuses := make([]StageStatus, len(stages))
	for i, st := range stages {
		status := "pending"
		switch {
		case p.Status == model.PipelineStatusCompleted || i < currentIdx:
			status = "completed"
		case i == currentIdx:
			if p.Status == model.PipelineStatusFailed {
				status = "failed"
			} else {
				status = "current"
			}
		}
		stageStatuses[i] = StageStatus{Id: st.Id, DisplayName: st.DisplayName, Status: status}
	}

	transitions, err := s.pipelineRepo.ListTransitions(ctx, pipelineId)
	if err != nil {
		return nil, err
	}
	openErrors, err := s.pipelineRepo.ListOpenErrors(ctx, pipelineId)
	if err != nil {
		return nil, err
	}

	return &PipelineStatus{
		Pipeline:    p,
		Stages:      stageStatuses,
		Transitions: transitions,
		OpenErrors:  openErrors,
	}, nil
}

func (s *PipelineService) get(ctx context.Context, pipelineId string) (*model.Pipeline, error) {
	p, err := s.pipelineRepo.Get(ctx, pipelineId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPipelineNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PipelineService) decodeStages(p *model.Pipeline) ([]model.StageDefinition, error) {
	var stages []model.StageDefinition
	if err := sonic.Unmarshal(p.Stages, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// recordTransition appends one audit row, measuring duration since the
// previous transition of the pipeline.
func (s *PipelineService) recordTransition(ctx context.Context, p *model.Pipeline, from, to, triggeredBy string) (int64, error) {
	var duration int64
	if prev, err := s.pipelineRepo.ListTransitions(ctx, p.PipelineId); err == nil && len(prev) > 0 {
		duration = time.Since(prev[len(prev)-1].CreateTime).Milliseconds()
	} else if p.StartedAt != nil {
		duration = time.Since(*p.StartedAt).Milliseconds()
	}
	return duration, s.pipelineRepo.CreateTransition(ctx, &model.PipelineTransition{
		PipelineId:  p.PipelineId,
		FromStage:   from,
		ToStage:     to,
		TriggeredBy: triggeredBy,
		Duration:    duration,
	})
}

func stageIndex(stages []model.StageDefinition, stageId string) int {
	for i, st := range stages {
		if st.Id == stageId {
			return i
		}
	}
	return -1
}
