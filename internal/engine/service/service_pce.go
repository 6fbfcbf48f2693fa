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
	"github.com/printforge/printforge/internal/pkg/queue"
	"github.com/printforge/printforge/pkg/event"
	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/taskqueue"
	"gorm.io/gorm"
)

// QueuePipeline is the queue all stage work is dispatched on.
const QueuePipeline = "pipeline"

// ProcessOrderOptions influence stage selection and dispatch priority.
type ProcessOrderOptions struct {
	SkipRender     bool `json:"skipRender,omitempty"`
	SkipProduction bool `json:"skipProduction,omitempty"`
	RushOrder      bool `json:"rushOrder,omitempty"`
}

// PceService is the top-level production orchestrator. It owns stage
// selection and background work dispatch; pipeline state changes always go
// through the PipelineService.
type PceService struct {
	*Services
	pipelines    *PipelineService
	pipelineRepo repo.IPipelineRepository
	orderRepo    repo.IOrderRepository
}

// NewPceService creates the domain orchestrator.
func NewPceService(services *Services, pipelines *PipelineService) *PceService {
	return &PceService{
		Services:     services,
		pipelines:    pipelines,
		pipelineRepo: services.Repos.Pipeline,
		orderRepo:    services.Repos.Order,
	}
}

// ProcessOrder creates and starts a pipeline for the order, then dispatches
// its first stage. Reprocessing an order returns the existing pipeline
// unchanged, which makes duplicate triggers (double webhooks) harmless.
func (s *PceService) ProcessOrder(ctx context.Context, orderId, brandId string, opts ProcessOrderOptions) (*model.Pipeline, error) {
	if existing, err := s.pipelineRepo.GetByOrderId(ctx, orderId); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	order, err := s.orderRepo.Get(ctx, orderId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	stages := s.selectStages(order, opts)
	metadata := map[string]any{
		"totalCents": order.TotalCents,
		"currency":   order.Currency,
		"itemCount":  len(order.Items),
		"rushOrder":  opts.RushOrder,
	}
	if opts.SkipRender {
		metadata["skipRender"] = true
	}
	if opts.SkipProduction {
		metadata["skipProduction"] = true
	}

	p, err := s.pipelines.CreatePipeline(ctx, orderId, brandId, stages, metadata)
	if err != nil {
		return nil, err
	}
	p, err = s.pipelines.StartPipeline(ctx, p.PipelineId)
	if err != nil {
		return nil, err
	}

	if err := s.dispatchStage(ctx, p, p.CurrentStage, opts.RushOrder); err != nil {
		log.Errorw("dispatch first stage failed",
			"pipelineId", p.PipelineId, "stage", p.CurrentStage, "error", err)
	}
	return p, nil
}

// selectStages computes the frozen stage plan for an order. Deterministic,
// evaluated exactly once per order.
func (s *PceService) selectStages(order *model.Order, opts ProcessOrderOptions) []model.StageDefinition {
	hasDesign := false
	hasPod := false
	for _, item := range order.Items {
		if item.HasDesignRef() {
			hasDesign = true
		}
		if item.FulfillmentType == model.FulfillmentTypePrintOnDemand {
			hasPod = true
		}
	}

	ids := []string{pipeline.StageValidation}
	if hasDesign && !opts.SkipRender {
		ids = append(ids, pipeline.StageRender)
	}
	if hasPod && !opts.SkipProduction {
		ids = append(ids, pipeline.StageProduction)
	}
	if order.TotalCents > s.Engine.QualityCheckThresholdCents || opts.RushOrder {
		ids = append(ids, pipeline.StageQualityCheck)
	}
	ids = append(ids, pipeline.StageFulfillment, pipeline.StageShipping, pipeline.StageDelivery)

	stages := make([]model.StageDefinition, len(ids))
	for i, stageId := range ids {
		stages[i] = model.StageDefinition{
			Id:          stageId,
			DisplayName: pipeline.DisplayName(stageId),
			Required:    true,
		}
	}
	return stages
}

// HandleStageCompleted decides what background work the next stage needs.
// It never advances the pipeline itself; the worker's success callback does.
func (s *PceService) HandleStageCompleted(ctx context.Context, pipelineId, completedStage, nextStage string) error {
	if nextStage == "" {
		return nil
	}
	p, err := s.pipelineRepo.Get(ctx, pipelineId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPipelineNotFound
		}
		return err
	}

	switch nextStage {
	case pipeline.StageRender:
		return s.dispatchRenderItems(ctx, p)
	case pipeline.StageProduction:
		return s.enqueueStageTask(ctx, p, taskqueue.TaskTypeCreateProduction, nextStage, false)
	case pipeline.StageFulfillment:
		return s.enqueueStageTask(ctx, p, taskqueue.TaskTypeCreateFulfillment, nextStage, false)
	case pipeline.StageShipping:
		return s.enqueueStageTask(ctx, p, taskqueue.TaskTypeShipFulfillment, nextStage, false)
	case pipeline.StageDelivery:
		// passive: awaits the carrier tracking webhook
		return nil
	default:
		return s.enqueueStageTask(ctx, p, taskqueue.TaskTypeExecuteStage, nextStage, false)
	}
}

// HandleStageFailed applies the retry policy: retryable failures get a
// delayed retry task with bounded attempts, non-retryable failures finish
// the pipeline in FAILED state.
func (s *PceService) HandleStageFailed(ctx context.Context, pipelineId, stage, errMsg string, retryable bool) error {
	p, err := s.pipelineRepo.Get(ctx, pipelineId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPipelineNotFound
		}
		return err
	}

	s.publish(ctx, StageFailedEvent{
		PipelineId: p.PipelineId,
		OrderId:    p.OrderId,
		Stage:      stage,
		Error:      errMsg,
		Retryable:  retryable,
	})

	if !retryable {
		_, err := s.pipelines.FailPipeline(ctx, pipelineId, errMsg, stage)
		return err
	}

	payload := &taskqueue.StageTaskPayload{
		TenantId:   p.BrandId,
		OrderId:    p.OrderId,
		PipelineId: p.PipelineId,
		Stage:      stage,
		Retry:      true,
	}
	data, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}
	delay := time.Duration(s.Engine.RetryDelaySeconds) * time.Second
	log.Infow("scheduling stage retry",
		"pipelineId", pipelineId, "stage", stage, "delay", delay, "error", errMsg)
	return s.Dispatcher.Enqueue(ctx, QueuePipeline, &queue.Task{
		Type:    taskqueue.TaskTypeRetryStage,
		Key:     taskqueue.StageKey(payload),
		Payload: data,
	}, queue.WithDelay(delay), queue.WithMaxAttempts(s.Engine.MaxRetries))
}

// OrderStatus combines the order with its pipeline projection.
type OrderStatus struct {
	Order    *model.Order    `json:"order"`
	Pipeline *PipelineStatus `json:"pipeline,omitempty"`
}

// GetOrderStatus returns the order and, when present, its pipeline status.
func (s *PceService) GetOrderStatus(ctx context.Context, orderId, brandId string) (*OrderStatus, error) {
	order, err := s.orderRepo.Get(ctx, orderId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if brandId != "" && order.BrandId != brandId {
		return nil, ErrOrderNotFound
	}

	status := &OrderStatus{Order: order}
	p, err := s.pipelineRepo.GetByOrderId(ctx, orderId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return status, nil
		}
		return nil, err
	}
	ps, err := s.pipelines.GetPipelineStatus(ctx, p.PipelineId, order.BrandId)
	if err != nil {
		return nil, err
	}
	status.Pipeline = ps
	return status, nil
}

// RegisterEventHandlers wires the orchestrator into the event bus so stage
// outcomes published by workers drive dispatch decisions.
func (s *PceService) RegisterEventHandlers() {
	s.Bus.RegisterHandlerFunc(EventStageCompleted, func(evt event.Event) {
		e, ok := evt.(StageCompletedEvent)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.HandleStageCompleted(ctx, e.PipelineId, e.Stage, e.NextStage); err != nil {
			log.Errorw("handle stage completed failed",
				"pipelineId", e.PipelineId, "nextStage", e.NextStage, "error", err)
		}
	})
	// A stage re-entered with the retry flag needs its work enqueued again;
	// RetryStage itself only resets state and announces the stage.
	s.Bus.RegisterHandlerFunc(EventStageStarted, func(evt event.Event) {
		e, ok := evt.(StageStartedEvent)
		if !ok || !e.Retry {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.HandleStageCompleted(ctx, e.PipelineId, "", e.Stage); err != nil {
			log.Errorw("handle stage retry failed",
				"pipelineId", e.PipelineId, "stage", e.Stage, "error", err)
		}
	})
}

func (s *PceService) dispatchStage(ctx context.Context, p *model.Pipeline, stage string, rush bool) error {
	return s.enqueueStageTask(ctx, p, taskqueue.TaskTypeExecuteStage, stage, rush)
}

func (s *PceService) enqueueStageTask(ctx context.Context, p *model.Pipeline, taskType, stage string, rush bool) error {
	payload := &taskqueue.StageTaskPayload{
		TenantId:   p.BrandId,
		OrderId:    p.OrderId,
		PipelineId: p.PipelineId,
		Stage:      stage,
		RushOrder:  rush,
	}
	data, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}
	opts := []queue.Option{queue.WithMaxAttempts(s.Engine.MaxRetries)}
	if rush && s.Engine.RushPriority {
		opts = append(opts, queue.WithPriority(queue.PriorityHigh))
	}
	return s.Dispatcher.Enqueue(ctx, QueuePipeline, &queue.Task{
		Type:    taskType,
		Key:     taskqueue.StageKey(payload),
		Payload: data,
	}, opts...)
}

// dispatchRenderItems enqueues one render job per line item that carries a
// design reference.
func (s *PceService) dispatchRenderItems(ctx context.Context, p *model.Pipeline) error {
	order, err := s.orderRepo.Get(ctx, p.OrderId)
	if err != nil {
		return err
	}
	for _, item := range order.Items {
		if !item.HasDesignRef() {
			continue
		}
		designRef := item.DesignId
		if designRef == "" {
			designRef = item.CustomizationId
		}
		payload := &taskqueue.RenderItemTaskPayload{
			TenantId:    p.BrandId,
			OrderId:     p.OrderId,
			PipelineId:  p.PipelineId,
			OrderItemId: item.OrderItemId,
			DesignRef:   designRef,
		}
		data, err := sonic.Marshal(payload)
		if err != nil {
			return err
		}
		err = s.Dispatcher.Enqueue(ctx, QueuePipeline, &queue.Task{
			Type:    taskqueue.TaskTypeRenderItem,
			Key:     taskqueue.RenderItemKey(payload),
			Payload: data,
		}, queue.WithMaxAttempts(s.Engine.MaxRetries))
		if err != nil {
			return err
		}
	}
	return nil
}
