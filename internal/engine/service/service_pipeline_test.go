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
	"strings"
	"testing"

	"github.com/printforge/printforge/internal/engine/model"
	"github.com/printforge/printforge/internal/pkg/pipeline"
)

func createStarted(t *testing.T, env *testEnv, orderId string) *model.Pipeline {
	t.Helper()
	ctx := context.Background()
	stages := []model.StageDefinition{
		{Id: pipeline.StageValidation, DisplayName: "Order Validation", Required: true},
		{Id: pipeline.StageRender, DisplayName: "Design Rendering", Required: true},
		{Id: pipeline.StageProduction, DisplayName: "Production", Required: true},
		{Id: pipeline.StageFulfillment, DisplayName: "Fulfillment", Required: true},
		{Id: pipeline.StageShipping, DisplayName: "Shipping", Required: true},
		{Id: pipeline.StageDelivery, DisplayName: "Delivery", Required: true},
	}
	p, err := env.pipelines.CreatePipeline(ctx, orderId, "brand-1", stages, nil)
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	p, err = env.pipelines.StartPipeline(ctx, p.PipelineId)
	if err != nil {
		t.Fatalf("StartPipeline: %v", err)
	}
	return p
}

func TestCreatePipeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := recordEvents(env.bus, EventPipelineCreated)

	stages := []model.StageDefinition{
		{Id: pipeline.StageValidation, DisplayName: "Order Validation", Required: true},
		{Id: pipeline.StageFulfillment, DisplayName: "Fulfillment", Required: true},
	}
	p, err := env.pipelines.CreatePipeline(ctx, "ord-1", "brand-1", stages, map[string]any{"totalCents": 5000})
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}

	if p.Status != model.PipelineStatusCreated {
		t.Errorf("status = %s", p.Status)
	}
	if p.CurrentStage != pipeline.StageValidation {
		t.Errorf("currentStage = %s", p.CurrentStage)
	}
	if p.Progress != 0 || p.Version != 0 {
		t.Errorf("progress=%d version=%d", p.Progress, p.Version)
	}
	if p.EstimatedCompletion == nil {
		t.Error("estimatedCompletion not set")
	}
	if len(rec.all()) != 1 {
		t.Errorf("created events = %d, want 1", len(rec.all()))
	}

	// duplicate order rejected
	if _, err := env.pipelines.CreatePipeline(ctx, "ord-1", "brand-1", stages, nil); !errors.Is(err, ErrPipelineExists) {
		t.Fatalf("duplicate create: %v, want ErrPipelineExists", err)
	}
}

func TestStartPipeline(t *testing.T) {
	env := newTestEnv(t)
	rec := recordEvents(env.bus, EventPipelineStarted, EventStageStarted)

	p := createStarted(t, env, "ord-1")

	if p.Status != model.PipelineStatusInProgress {
		t.Errorf("status = %s", p.Status)
	}
	if p.StartedAt == nil {
		t.Error("startedAt not set")
	}

	names := rec.names()
	if !equalStrings(names, []string{EventPipelineStarted, EventStageStarted}) {
		t.Errorf("events = %v", names)
	}

	transitions, err := env.services.Repos.Pipeline.ListTransitions(context.Background(), p.PipelineId)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(transitions) != 1 || transitions[0].FromStage != pipeline.StageCreated {
		t.Fatalf("synthetic start transition missing: %+v", transitions)
	}
}

func TestAdvanceStagePositional(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createStarted(t, env, "ord-1")
	rec := recordEvents(env.bus, EventStageCompleted, EventStageStarted)

	p, err := env.pipelines.AdvanceStage(ctx, p.PipelineId, "", model.TriggeredBySystem)
	if err != nil {
		t.Fatalf("AdvanceStage: %v", err)
	}

	if p.CurrentStage != pipeline.StageRender {
		t.Errorf("currentStage = %s", p.CurrentStage)
	}
	if p.Progress != 33 { // round(2/6*100)
		t.Errorf("progress = %d, want 33", p.Progress)
	}
	if p.Version != 1 {
		t.Errorf("version = %d, want 1", p.Version)
	}

	names := rec.names()
	if !equalStrings(names, []string{EventStageCompleted, EventStageStarted}) {
		t.Errorf("events = %v", names)
	}
	completed := rec.all()[0].(StageCompletedEvent)
	if completed.Stage != pipeline.StageValidation || completed.NextStage != pipeline.StageRender {
		t.Errorf("stage.completed payload: %+v", completed)
	}
}

func TestAdvanceStageTargeted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createStarted(t, env, "ord-1")

	p, err := env.pipelines.AdvanceStage(ctx, p.PipelineId, pipeline.StageProduction, model.TriggeredByManual)
	if err != nil {
		t.Fatalf("targeted advance: %v", err)
	}
	if p.CurrentStage != pipeline.StageProduction {
		t.Errorf("currentStage = %s", p.CurrentStage)
	}
	if p.Progress != 50 { // round(3/6*100)
		t.Errorf("progress = %d, want 50", p.Progress)
	}

	// target outside the stage plan
	if _, err := env.pipelines.AdvanceStage(ctx, p.PipelineId, "QUALITY_CHECK", model.TriggeredByManual); !errors.Is(err, ErrInvalidTargetStage) {
		t.Fatalf("bad target: %v, want ErrInvalidTargetStage", err)
	}
}

func TestAdvanceStageConcurrentModification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createStarted(t, env, "ord-1")

	// another writer bumps the version behind our back
	if err := env.services.Repos.Pipeline.Update(ctx, p.PipelineId, map[string]any{"version": p.Version + 1}); err != nil {
		t.Fatalf("simulate concurrent write: %v", err)
	}

	stale := *p
	if _, err := env.pipelines.AdvanceStage(ctx, stale.PipelineId, "", model.TriggeredBySystem); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("stale advance: %v, want ErrConcurrentModification", err)
	}
}

func TestAdvancePastLastStageCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := recordEvents(env.bus, EventPipelineCompleted)

	stages := []model.StageDefinition{
		{Id: pipeline.StageValidation, DisplayName: "Order Validation", Required: true},
		{Id: pipeline.StageFulfillment, DisplayName: "Fulfillment", Required: true},
	}
	p, err := env.pipelines.CreatePipeline(ctx, "ord-1", "brand-1", stages, nil)
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	if _, err = env.pipelines.StartPipeline(ctx, p.PipelineId); err != nil {
		t.Fatalf("StartPipeline: %v", err)
	}

	if _, err = env.pipelines.AdvanceStage(ctx, p.PipelineId, "", model.TriggeredBySystem); err != nil {
		t.Fatalf("advance 1: %v", err)
	}
	p, err = env.pipelines.AdvanceStage(ctx, p.PipelineId, "", model.TriggeredBySystem)
	if err != nil {
		t.Fatalf("advance past last: %v", err)
	}

	if p.Status != model.PipelineStatusCompleted {
		t.Errorf("status = %s", p.Status)
	}
	if p.CurrentStage != pipeline.StageCompleted || p.Progress != 100 {
		t.Errorf("stage=%s progress=%d", p.CurrentStage, p.Progress)
	}
	if p.CompletedAt == nil {
		t.Error("completedAt not set")
	}
	if len(rec.all()) != 1 {
		t.Errorf("completed events = %d, want 1", len(rec.all()))
	}

	// terminal pipeline cannot advance
	if _, err := env.pipelines.AdvanceStage(ctx, p.PipelineId, "", model.TriggeredBySystem); !errors.Is(err, ErrPipelineTerminal) {
		t.Fatalf("terminal advance: %v, want ErrPipelineTerminal", err)
	}
}

func TestRetryStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createStarted(t, env, "ord-1")

	// fail it first
	if _, err := env.pipelines.FailPipeline(ctx, p.PipelineId, "render exploded", pipeline.StageValidation); err != nil {
		t.Fatalf("FailPipeline: %v", err)
	}

	rec := recordEvents(env.bus, EventStageStarted)
	p, err := env.pipelines.RetryStage(ctx, p.PipelineId)
	if err != nil {
		t.Fatalf("RetryStage: %v", err)
	}

	if p.Status != model.PipelineStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", p.Status)
	}
	events := rec.all()
	if len(events) != 1 {
		t.Fatalf("stage.started events = %d, want 1", len(events))
	}
	if started := events[0].(StageStartedEvent); !started.Retry {
		t.Error("retry flag not set on stage.started")
	}

	open, err := env.services.Repos.Pipeline.ListOpenErrors(ctx, p.PipelineId)
	if err != nil {
		t.Fatalf("ListOpenErrors: %v", err)
	}
	if len(open) != 1 || open[0].RetryCount != 1 {
		t.Fatalf("open errors after retry: %+v", open)
	}
}

func TestRollbackStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createStarted(t, env, "ord-1")
	rec := recordEvents(env.bus, EventPipelineRollback)

	// advance twice: VALIDATION -> RENDER -> PRODUCTION
	for i := 0; i < 2; i++ {
		var err error
		p, err = env.pipelines.AdvanceStage(ctx, p.PipelineId, "", model.TriggeredBySystem)
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	// implicit rollback to previous stage
	p, err := env.pipelines.RollbackStage(ctx, p.PipelineId, "")
	if err != nil {
		t.Fatalf("RollbackStage: %v", err)
	}
	if p.CurrentStage != pipeline.StageRender {
		t.Errorf("currentStage = %s, want RENDER", p.CurrentStage)
	}
	if p.Progress != 33 {
		t.Errorf("progress = %d, want 33", p.Progress)
	}

	// explicit target must be earlier than current
	if _, err := env.pipelines.RollbackStage(ctx, p.PipelineId, pipeline.StageShipping); !errors.Is(err, ErrInvalidRollbackTarget) {
		t.Fatalf("forward rollback: %v, want ErrInvalidRollbackTarget", err)
	}

	// rollback to explicit earlier stage
	p, err = env.pipelines.RollbackStage(ctx, p.PipelineId, pipeline.StageValidation)
	if err != nil {
		t.Fatalf("explicit rollback: %v", err)
	}
	if p.CurrentStage != pipeline.StageValidation {
		t.Errorf("currentStage = %s, want VALIDATION", p.CurrentStage)
	}

	// cannot rollback from the first stage
	if _, err := env.pipelines.RollbackStage(ctx, p.PipelineId, ""); !errors.Is(err, ErrCannotRollback) {
		t.Fatalf("first-stage rollback: %v, want ErrCannotRollback", err)
	}

	if len(rec.all()) != 2 {
		t.Errorf("rollback events = %d, want 2", len(rec.all()))
	}
}

func TestFailPipeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createStarted(t, env, "ord-1")
	rec := recordEvents(env.bus, EventPipelineFailed)

	p, err := env.pipelines.FailPipeline(ctx, p.PipelineId, "provider down", "")
	if err != nil {
		t.Fatalf("FailPipeline: %v", err)
	}
	if p.Status != model.PipelineStatusFailed || p.FailedAt == nil {
		t.Errorf("status=%s failedAt=%v", p.Status, p.FailedAt)
	}

	open, err := env.services.Repos.Pipeline.ListOpenErrors(ctx, p.PipelineId)
	if err != nil {
		t.Fatalf("ListOpenErrors: %v", err)
	}
	if len(open) != 1 || open[0].Retryable {
		t.Fatalf("error rows: %+v", open)
	}
	if open[0].Stage != pipeline.StageValidation {
		t.Errorf("error stage = %s, want current stage", open[0].Stage)
	}

	events := rec.all()
	if len(events) != 1 {
		t.Fatalf("failed events = %d", len(events))
	}
	if failed := events[0].(PipelineFailedEvent); failed.Error != "provider down" {
		t.Errorf("failed payload: %+v", failed)
	}
}

func TestCancelPipeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createStarted(t, env, "ord-1")
	rec := recordEvents(env.bus, EventPipelineCancelled)

	p, err := env.pipelines.CancelPipeline(ctx, p.PipelineId, "customer request")
	if err != nil {
		t.Fatalf("CancelPipeline: %v", err)
	}
	if p.Status != model.PipelineStatusCancelled || p.CancelledAt == nil {
		t.Errorf("status=%s cancelledAt=%v", p.Status, p.CancelledAt)
	}

	// reason lands in metadata
	status, err := env.pipelines.GetPipelineStatus(ctx, p.PipelineId, "brand-1")
	if err != nil {
		t.Fatalf("GetPipelineStatus: %v", err)
	}
	if !strings.Contains(string(status.Pipeline.Metadata), "customer request") {
		t.Errorf("metadata = %s", status.Pipeline.Metadata)
	}

	// terminal pipelines are immutable: no write, CannotCancel
	if _, err := env.pipelines.CancelPipeline(ctx, p.PipelineId, "again"); !errors.Is(err, ErrCannotCancel) {
		t.Fatalf("cancel terminal: %v, want ErrCannotCancel", err)
	}
	if len(rec.all()) != 1 {
		t.Errorf("cancelled events = %d, want 1", len(rec.all()))
	}
}

func TestGetPipelineStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := createStarted(t, env, "ord-1")

	// advance to PRODUCTION
	for i := 0; i < 2; i++ {
		var err error
		p, err = env.pipelines.AdvanceStage(ctx, p.PipelineId, "", model.TriggeredBySystem)
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	status, err := env.pipelines.GetPipelineStatus(ctx, p.PipelineId, "brand-1")
	if err != nil {
		t.Fatalf("GetPipelineStatus: %v", err)
	}
	want := []string{"completed", "completed", "current", "pending", "pending", "pending"}
	for i, st := range status.Stages {
		if st.Status != want[i] {
			t.Errorf("stage[%d] %s = %s, want %s", i, st.Id, st.Status, want[i])
		}
	}
	if len(status.Transitions) != 3 { // start + 2 advances
		t.Errorf("transitions = %d, want 3", len(status.Transitions))
	}

	// tenant scoping
	if _, err := env.pipelines.GetPipelineStatus(ctx, p.PipelineId, "brand-2"); !errors.Is(err, ErrPipelineNotFound) {
		t.Fatalf("cross-brand read: %v, want ErrPipelineNotFound", err)
	}

	// failed pipeline marks the current stage failed
	if _, err := env.pipelines.FailPipeline(ctx, p.PipelineId, "boom", ""); err != nil {
		t.Fatalf("FailPipeline: %v", err)
	}
	status, err = env.pipelines.GetPipelineStatus(ctx, p.PipelineId, "brand-1")
	if err != nil {
		t.Fatalf("GetPipelineStatus after fail: %v", err)
	}
	if status.Stages[2].Status != "failed" {
		t.Errorf("current stage status = %s, want failed", status.Stages[2].Status)
	}
}
