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
	"testing"
	"time"

	"github.com/printforge/printforge/internal/engine/model"
	"github.com/printforge/printforge/internal/pkg/pipeline"
	"github.com/printforge/printforge/pkg/taskqueue"
)

func TestProcessOrderEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 5000 cents, POD item with a design ref, default options:
	// QUALITY_CHECK excluded (threshold 10000), RENDER and PRODUCTION in.
	seedOrder(t, env, podOrder("ord-1", "brand-1", 5000))

	p, err := env.pce.ProcessOrder(ctx, "ord-1", "brand-1", ProcessOrderOptions{})
	if err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}

	want := []string{
		pipeline.StageValidation,
		pipeline.StageRender,
		pipeline.StageProduction,
		pipeline.StageFulfillment,
		pipeline.StageShipping,
		pipeline.StageDelivery,
	}
	if got := stageIds(t, env, p); !equalStrings(got, want) {
		t.Errorf("stages = %v, want %v", got, want)
	}
	if p.Status != model.PipelineStatusInProgress {
		t.Errorf("status = %s", p.Status)
	}
	if p.CurrentStage != pipeline.StageValidation {
		t.Errorf("currentStage = %s", p.CurrentStage)
	}

	tasks := env.dispatcher.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("dispatched %d tasks, want 1", len(tasks))
	}
	if tasks[0].Task.Type != taskqueue.TaskTypeExecuteStage {
		t.Errorf("task type = %s", tasks[0].Task.Type)
	}
	if tasks[0].Queue != QueuePipeline {
		t.Errorf("queue = %s", tasks[0].Queue)
	}
}

func TestProcessOrderIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOrder(t, env, podOrder("ord-1", "brand-1", 5000))

	first, err := env.pce.ProcessOrder(ctx, "ord-1", "brand-1", ProcessOrderOptions{})
	if err != nil {
		t.Fatalf("first ProcessOrder: %v", err)
	}
	env.dispatcher.Reset()

	second, err := env.pce.ProcessOrder(ctx, "ord-1", "brand-1", ProcessOrderOptions{})
	if err != nil {
		t.Fatalf("second ProcessOrder: %v", err)
	}
	if second.PipelineId != first.PipelineId {
		t.Errorf("second call created a new pipeline: %s vs %s", second.PipelineId, first.PipelineId)
	}
	if len(env.dispatcher.Tasks()) != 0 {
		t.Error("duplicate trigger dispatched work")
	}
}

func TestProcessOrderUnknownOrder(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.pce.ProcessOrder(context.Background(), "nope", "brand-1", ProcessOrderOptions{}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("unknown order: %v, want ErrOrderNotFound", err)
	}
}

func TestStageSelection(t *testing.T) {
	tests := []struct {
		name  string
		order *model.Order
		opts  ProcessOrderOptions
		want  []string
	}{
		{
			name:  "pod with design, default options",
			order: podOrder("o", "b", 5000),
			want: []string{
				pipeline.StageValidation, pipeline.StageRender, pipeline.StageProduction,
				pipeline.StageFulfillment, pipeline.StageShipping, pipeline.StageDelivery,
			},
		},
		{
			name:  "skipRender drops RENDER",
			order: podOrder("o", "b", 5000),
			opts:  ProcessOrderOptions{SkipRender: true},
			want: []string{
				pipeline.StageValidation, pipeline.StageProduction,
				pipeline.StageFulfillment, pipeline.StageShipping, pipeline.StageDelivery,
			},
		},
		{
			name:  "skipProduction drops PRODUCTION",
			order: podOrder("o", "b", 5000),
			opts:  ProcessOrderOptions{SkipProduction: true},
			want: []string{
				pipeline.StageValidation, pipeline.StageRender,
				pipeline.StageFulfillment, pipeline.StageShipping, pipeline.StageDelivery,
			},
		},
		{
			name:  "total above threshold adds QUALITY_CHECK",
			order: podOrder("o", "b", 15000),
			want: []string{
				pipeline.StageValidation, pipeline.StageRender, pipeline.StageProduction,
				pipeline.StageQualityCheck,
				pipeline.StageFulfillment, pipeline.StageShipping, pipeline.StageDelivery,
			},
		},
		{
			name:  "rush order adds QUALITY_CHECK below threshold",
			order: podOrder("o", "b", 5000),
			opts:  ProcessOrderOptions{RushOrder: true},
			want: []string{
				pipeline.StageValidation, pipeline.StageRender, pipeline.StageProduction,
				pipeline.StageQualityCheck,
				pipeline.StageFulfillment, pipeline.StageShipping, pipeline.StageDelivery,
			},
		},
		{
			name: "stocked item without design gets the minimal path",
			order: &model.Order{
				OrderId: "o", BrandId: "b", TotalCents: 2000,
				Items: []model.OrderItem{
					{OrderItemId: "i1", OrderId: "o", FulfillmentType: model.FulfillmentTypeStocked},
				},
			},
			want: []string{
				pipeline.StageValidation,
				pipeline.StageFulfillment, pipeline.StageShipping, pipeline.StageDelivery,
			},
		},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages := env.pce.selectStages(tt.order, tt.opts)
			got := make([]string, len(stages))
			for i, st := range stages {
				got[i] = st.Id
			}
			if !equalStrings(got, tt.want) {
				t.Errorf("stages = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleStageCompletedDispatchTable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOrder(t, env, podOrder("ord-1", "brand-1", 5000))
	p, err := env.pce.ProcessOrder(ctx, "ord-1", "brand-1", ProcessOrderOptions{})
	if err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}

	tests := []struct {
		nextStage string
		wantType  string
		wantCount int
	}{
		{pipeline.StageRender, taskqueue.TaskTypeRenderItem, 1}, // one item with a design ref
		{pipeline.StageProduction, taskqueue.TaskTypeCreateProduction, 1},
		{pipeline.StageFulfillment, taskqueue.TaskTypeCreateFulfillment, 1},
		{pipeline.StageShipping, taskqueue.TaskTypeShipFulfillment, 1},
		{pipeline.StageDelivery, "", 0}, // passive, awaits tracking webhook
		{"CUSTOM_STAGE", taskqueue.TaskTypeExecuteStage, 1},
	}

	for _, tt := range tests {
		t.Run(tt.nextStage, func(t *testing.T) {
			env.dispatcher.Reset()
			if err := env.pce.HandleStageCompleted(ctx, p.PipelineId, pipeline.StageValidation, tt.nextStage); err != nil {
				t.Fatalf("HandleStageCompleted: %v", err)
			}
			tasks := env.dispatcher.Tasks()
			if len(tasks) != tt.wantCount {
				t.Fatalf("dispatched %d tasks, want %d", len(tasks), tt.wantCount)
			}
			if tt.wantCount > 0 && tasks[0].Task.Type != tt.wantType {
				t.Errorf("task type = %s, want %s", tasks[0].Task.Type, tt.wantType)
			}
		})
	}
}

func TestHandleStageFailedRetryable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOrder(t, env, podOrder("ord-1", "brand-1", 5000))
	p, err := env.pce.ProcessOrder(ctx, "ord-1", "brand-1", ProcessOrderOptions{})
	if err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}
	env.dispatcher.Reset()

	if err := env.pce.HandleStageFailed(ctx, p.PipelineId, pipeline.StageRender, "Timeout", true); err != nil {
		t.Fatalf("HandleStageFailed: %v", err)
	}

	tasks := env.dispatcher.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("dispatched %d tasks, want 1", len(tasks))
	}
	retry := tasks[0]
	if retry.Task.Type != taskqueue.TaskTypeRetryStage {
		t.Errorf("task type = %s", retry.Task.Type)
	}
	if retry.Options.Delay != 60*time.Second {
		t.Errorf("delay = %v, want 60s", retry.Options.Delay)
	}
	if retry.Options.MaxAttempts != 3 {
		t.Errorf("maxAttempts = %d, want 3", retry.Options.MaxAttempts)
	}

	// retryable path never creates a PipelineError row or fails the pipeline
	open, err := env.services.Repos.Pipeline.ListOpenErrors(ctx, p.PipelineId)
	if err != nil {
		t.Fatalf("ListOpenErrors: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("retryable failure created error rows: %+v", open)
	}
	reloaded, err := env.services.Repos.Pipeline.Get(ctx, p.PipelineId)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reloaded.Status != model.PipelineStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", reloaded.Status)
	}
}

func TestHandleStageFailedFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOrder(t, env, podOrder("ord-1", "brand-1", 5000))
	p, err := env.pce.ProcessOrder(ctx, "ord-1", "brand-1", ProcessOrderOptions{})
	if err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}
	env.dispatcher.Reset()

	if err := env.pce.HandleStageFailed(ctx, p.PipelineId, pipeline.StageRender, "Fatal", false); err != nil {
		t.Fatalf("HandleStageFailed: %v", err)
	}

	reloaded, err := env.services.Repos.Pipeline.Get(ctx, p.PipelineId)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reloaded.Status != model.PipelineStatusFailed {
		t.Errorf("status = %s, want FAILED", reloaded.Status)
	}

	open, err := env.services.Repos.Pipeline.ListOpenErrors(ctx, p.PipelineId)
	if err != nil {
		t.Fatalf("ListOpenErrors: %v", err)
	}
	if len(open) != 1 || open[0].Retryable || open[0].Message != "Fatal" {
		t.Fatalf("error rows: %+v", open)
	}
	if len(env.dispatcher.Tasks()) != 0 {
		t.Error("fatal failure dispatched retry work")
	}
}

func TestRetryStageRedispatchesWork(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.pce.RegisterEventHandlers()

	seedOrder(t, env, podOrder("ord-1", "brand-1", 5000))
	p, err := env.pce.ProcessOrder(ctx, "ord-1", "brand-1", ProcessOrderOptions{})
	if err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}
	if err := env.pce.HandleStageFailed(ctx, p.PipelineId, pipeline.StageValidation, "Fatal", false); err != nil {
		t.Fatalf("HandleStageFailed: %v", err)
	}
	env.dispatcher.Reset()

	// a manual retry must re-enqueue the stage work, not just flip the status
	retried, err := env.pipelines.RetryStage(ctx, p.PipelineId)
	if err != nil {
		t.Fatalf("RetryStage: %v", err)
	}
	if retried.Status != model.PipelineStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", retried.Status)
	}

	tasks := env.dispatcher.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("dispatched %d tasks after retry, want 1", len(tasks))
	}
	if tasks[0].Task.Type != taskqueue.TaskTypeExecuteStage {
		t.Errorf("task type = %s, want %s", tasks[0].Task.Type, taskqueue.TaskTypeExecuteStage)
	}
	if tasks[0].Queue != QueuePipeline {
		t.Errorf("queue = %s", tasks[0].Queue)
	}
}

func TestGetOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedOrder(t, env, podOrder("ord-1", "brand-1", 5000))

	// before processing: order only
	status, err := env.pce.GetOrderStatus(ctx, "ord-1", "brand-1")
	if err != nil {
		t.Fatalf("GetOrderStatus: %v", err)
	}
	if status.Pipeline != nil {
		t.Error("pipeline present before processing")
	}

	if _, err := env.pce.ProcessOrder(ctx, "ord-1", "brand-1", ProcessOrderOptions{}); err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}
	status, err = env.pce.GetOrderStatus(ctx, "ord-1", "brand-1")
	if err != nil {
		t.Fatalf("GetOrderStatus after processing: %v", err)
	}
	if status.Pipeline == nil || status.Pipeline.Pipeline.OrderId != "ord-1" {
		t.Fatalf("pipeline projection missing: %+v", status.Pipeline)
	}

	// tenant scoping
	if _, err := env.pce.GetOrderStatus(ctx, "ord-1", "brand-2"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("cross-brand read: %v, want ErrOrderNotFound", err)
	}
}

func TestStatsService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	stats := NewStatsService(env.services, nil)

	// empty data returns zeros, not an error
	zero, err := stats.GetDashboardStats(ctx, "brand-1")
	if err != nil {
		t.Fatalf("GetDashboardStats empty: %v", err)
	}
	if *zero != (DashboardStats{}) {
		t.Errorf("empty stats = %+v", zero)
	}

	seedOrder(t, env, podOrder("ord-1", "brand-1", 5000))
	p, err := env.pce.ProcessOrder(ctx, "ord-1", "brand-1", ProcessOrderOptions{})
	if err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}

	got, err := stats.GetDashboardStats(ctx, "brand-1")
	if err != nil {
		t.Fatalf("GetDashboardStats: %v", err)
	}
	if got.TotalOrders != 1 || got.PipelinesInProgress != 1 {
		t.Errorf("stats = %+v", got)
	}

	if _, err := env.pipelines.FailPipeline(ctx, p.PipelineId, "boom", ""); err != nil {
		t.Fatalf("FailPipeline: %v", err)
	}
	alerts, err := stats.GetRecentAlerts(ctx, "brand-1", 10)
	if err != nil {
		t.Fatalf("GetRecentAlerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Message != "boom" || alerts[0].Resolved {
		t.Fatalf("alerts = %+v", alerts)
	}

	got, err = stats.GetDashboardStats(ctx, "brand-1")
	if err != nil {
		t.Fatalf("GetDashboardStats after failure: %v", err)
	}
	if got.OpenErrorsToday != 1 || got.PipelinesInProgress != 0 {
		t.Errorf("stats after failure = %+v", got)
	}
}

func TestSweepStale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	stats := NewStatsService(env.services, nil)

	seedOrder(t, env, podOrder("ord-1", "brand-1", 5000))
	if _, err := env.pce.ProcessOrder(ctx, "ord-1", "brand-1", ProcessOrderOptions{}); err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}

	n, err := stats.SweepStale(ctx, time.Now().Add(-time.Hour), 100)
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh pipeline flagged stale")
	}

	n, err = stats.SweepStale(ctx, time.Now().Add(time.Hour), 100)
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if n != 1 {
		t.Errorf("stale count = %d, want 1", n)
	}
}
