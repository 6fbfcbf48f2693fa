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

package repo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/printforge/printforge/internal/engine/model"
	"github.com/printforge/printforge/pkg/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) database.IDatabase {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Pipeline{},
		&model.PipelineTransition{},
		&model.PipelineError{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return database.FromGorm(db)
}

func seedPipeline(t *testing.T, r IPipelineRepository, pipelineId, orderId, brandId string) *model.Pipeline {
	t.Helper()
	p := &model.Pipeline{
		PipelineId:   pipelineId,
		OrderId:      orderId,
		BrandId:      brandId,
		Stages:       []byte(`[{"id":"VALIDATION","displayName":"Order Validation","required":true}]`),
		CurrentStage: "VALIDATION",
		Status:       model.PipelineStatusInProgress,
		Version:      1,
		Metadata:     []byte(`{}`),
	}
	if err := r.Create(context.Background(), p); err != nil {
		t.Fatalf("seed pipeline: %v", err)
	}
	return p
}

func TestPipelineRepoCreateGet(t *testing.T) {
	r := NewPipelineRepo(newTestDB(t))
	ctx := context.Background()

	seedPipeline(t, r, "pl-1", "ord-1", "brand-1")

	got, err := r.Get(ctx, "pl-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OrderId != "ord-1" || got.Version != 1 {
		t.Fatalf("unexpected pipeline: %+v", got)
	}

	byOrder, err := r.GetByOrderId(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetByOrderId: %v", err)
	}
	if byOrder.PipelineId != "pl-1" {
		t.Fatalf("GetByOrderId returned %s", byOrder.PipelineId)
	}

	if _, err := r.Get(ctx, "missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestPipelineRepoGetScoped(t *testing.T) {
	r := NewPipelineRepo(newTestDB(t))
	ctx := context.Background()

	seedPipeline(t, r, "pl-1", "ord-1", "brand-1")

	if _, err := r.GetScoped(ctx, "pl-1", "brand-1"); err != nil {
		t.Fatalf("GetScoped same brand: %v", err)
	}
	if _, err := r.GetScoped(ctx, "pl-1", "brand-2"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("cross-brand read should miss, got %v", err)
	}
}

func TestPipelineRepoUpdateWhereVersion(t *testing.T) {
	r := NewPipelineRepo(newTestDB(t))
	ctx := context.Background()

	seedPipeline(t, r, "pl-1", "ord-1", "brand-1")

	affected, err := r.UpdateWhereVersion(ctx, "pl-1", 1, map[string]any{
		"current_stage": "RENDER",
		"version":       2,
	})
	if err != nil {
		t.Fatalf("UpdateWhereVersion: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d, want 1", affected)
	}

	// stale version loses
	affected, err = r.UpdateWhereVersion(ctx, "pl-1", 1, map[string]any{
		"current_stage": "PRODUCTION",
		"version":       2,
	})
	if err != nil {
		t.Fatalf("UpdateWhereVersion stale: %v", err)
	}
	if affected != 0 {
		t.Fatalf("stale update affected %d rows", affected)
	}

	got, err := r.Get(ctx, "pl-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CurrentStage != "RENDER" || got.Version != 2 {
		t.Fatalf("pipeline after CAS: stage=%s version=%d", got.CurrentStage, got.Version)
	}
}

func TestPipelineRepoTransitions(t *testing.T) {
	r := NewPipelineRepo(newTestDB(t))
	ctx := context.Background()

	seedPipeline(t, r, "pl-1", "ord-1", "brand-1")

	for _, tr := range []struct{ from, to string }{
		{"CREATED", "VALIDATION"},
		{"VALIDATION", "RENDER"},
	} {
		err := r.CreateTransition(ctx, &model.PipelineTransition{
			PipelineId:  "pl-1",
			FromStage:   tr.from,
			ToStage:     tr.to,
			TriggeredBy: model.TriggeredBySystem,
		})
		if err != nil {
			t.Fatalf("CreateTransition: %v", err)
		}
	}

	list, err := r.ListTransitions(ctx, "pl-1")
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d transitions, want 2", len(list))
	}
	if list[0].ToStage != "VALIDATION" || list[1].ToStage != "RENDER" {
		t.Fatalf("transitions out of order: %+v", list)
	}
}

func TestPipelineRepoErrorLifecycle(t *testing.T) {
	r := NewPipelineRepo(newTestDB(t))
	ctx := context.Background()

	seedPipeline(t, r, "pl-1", "ord-1", "brand-1")

	err := r.CreateError(ctx, &model.PipelineError{
		PipelineId: "pl-1",
		Stage:      "RENDER",
		Message:    "render timeout",
		Retryable:  true,
	})
	if err != nil {
		t.Fatalf("CreateError: %v", err)
	}

	if err := r.IncrementOpenErrorRetries(ctx, "pl-1", "RENDER"); err != nil {
		t.Fatalf("IncrementOpenErrorRetries: %v", err)
	}

	open, err := r.ListOpenErrors(ctx, "pl-1")
	if err != nil {
		t.Fatalf("ListOpenErrors: %v", err)
	}
	if len(open) != 1 || open[0].RetryCount != 1 {
		t.Fatalf("open errors: %+v", open)
	}

	if err := r.ResolveOpenErrors(ctx, "pl-1", time.Now()); err != nil {
		t.Fatalf("ResolveOpenErrors: %v", err)
	}
	open, err = r.ListOpenErrors(ctx, "pl-1")
	if err != nil {
		t.Fatalf("ListOpenErrors after resolve: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("errors still open after resolve: %+v", open)
	}
}

func TestPipelineRepoStatsQueries(t *testing.T) {
	db := newTestDB(t)
	r := NewPipelineRepo(db)
	ctx := context.Background()

	seedPipeline(t, r, "pl-1", "ord-1", "brand-1")
	seedPipeline(t, r, "pl-2", "ord-2", "brand-1")
	seedPipeline(t, r, "pl-3", "ord-3", "brand-2")

	now := time.Now()
	if err := r.Update(ctx, "pl-2", map[string]any{
		"status":       model.PipelineStatusCompleted,
		"completed_at": now,
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	inProgress, err := r.CountByStatus(ctx, "brand-1", model.PipelineStatusInProgress)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if inProgress != 1 {
		t.Fatalf("in progress = %d, want 1", inProgress)
	}

	completed, err := r.CountCompletedSince(ctx, "brand-1", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountCompletedSince: %v", err)
	}
	if completed != 1 {
		t.Fatalf("completed = %d, want 1", completed)
	}

	if err := r.CreateError(ctx, &model.PipelineError{
		PipelineId: "pl-1", Stage: "RENDER", Message: "boom", Retryable: false,
	}); err != nil {
		t.Fatalf("CreateError: %v", err)
	}
	openErrs, err := r.CountOpenErrorsSince(ctx, "brand-1", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountOpenErrorsSince: %v", err)
	}
	if openErrs != 1 {
		t.Fatalf("open errors = %d, want 1", openErrs)
	}

	recent, err := r.ListRecentErrors(ctx, "brand-1", 10)
	if err != nil {
		t.Fatalf("ListRecentErrors: %v", err)
	}
	if len(recent) != 1 || recent[0].Message != "boom" {
		t.Fatalf("recent errors: %+v", recent)
	}
}

func TestPipelineRepoListStale(t *testing.T) {
	db := newTestDB(t)
	r := NewPipelineRepo(db)
	ctx := context.Background()

	seedPipeline(t, r, "pl-1", "ord-1", "brand-1")

	stale, err := r.ListStale(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("fresh pipeline flagged stale: %+v", stale)
	}

	stale, err = r.ListStale(ctx, time.Now().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("got %d stale, want 1", len(stale))
	}
}

func TestOrderRepo(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderRepo(db)
	ctx := context.Background()

	raw := db.Database()
	if err := raw.Create(&model.Order{
		OrderId:    "ord-1",
		BrandId:    "brand-1",
		TotalCents: 5000,
		Currency:   "USD",
		Items: []model.OrderItem{
			{OrderItemId: "item-1", OrderId: "ord-1", ProductId: "sku-1", Quantity: 1, PriceCents: 5000, FulfillmentType: model.FulfillmentTypePrintOnDemand, DesignId: "design-1"},
		},
	}).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	got, err := orders.Get(ctx, "ord-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Items) != 1 || !got.Items[0].HasDesignRef() {
		t.Fatalf("order items: %+v", got.Items)
	}

	count, err := orders.CountByBrand(ctx, "brand-1")
	if err != nil {
		t.Fatalf("CountByBrand: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}
