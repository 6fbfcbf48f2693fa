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
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/printforge/printforge/internal/engine/config"
	"github.com/printforge/printforge/internal/engine/model"
	"github.com/printforge/printforge/internal/engine/repo"
	"github.com/printforge/printforge/internal/pkg/queue"
	"github.com/printforge/printforge/pkg/database"
	"github.com/printforge/printforge/pkg/event"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var testDBSeq atomic.Int64

type testEnv struct {
	services   *Services
	pipelines  *PipelineService
	pce        *PceService
	dispatcher *queue.RecordingDispatcher
	bus        *event.Bus
	db         database.IDatabase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(
		&model.Pipeline{},
		&model.PipelineTransition{},
		&model.PipelineError{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})

	db := database.FromGorm(gdb)
	repos := repo.NewRepositories(repo.NewPipelineRepo(db), repo.NewOrderRepo(db))
	bus := event.NewEventBus()
	dispatcher := queue.NewRecordingDispatcher()

	engineConf := config.EngineConfig{}
	engineConf.SetDefaults()

	services := NewServices(db, nil, repos, bus, dispatcher, nil, engineConf)
	pipelines := NewPipelineService(services)
	pce := NewPceService(services, pipelines)

	return &testEnv{
		services:   services,
		pipelines:  pipelines,
		pce:        pce,
		dispatcher: dispatcher,
		bus:        bus,
		db:         db,
	}
}

// eventRecorder captures published events by name for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

func recordEvents(bus *event.Bus, names ...string) *eventRecorder {
	r := &eventRecorder{}
	for _, name := range names {
		bus.RegisterHandlerFunc(name, func(evt event.Event) {
			r.mu.Lock()
			r.events = append(r.events, evt)
			r.mu.Unlock()
		})
	}
	return r
}

func (r *eventRecorder) all() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) names() []string {
	events := r.all()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName()
	}
	return names
}

func seedOrder(t *testing.T, env *testEnv, order *model.Order) {
	t.Helper()
	if err := env.db.Database().Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func podOrder(orderId, brandId string, totalCents int64) *model.Order {
	return &model.Order{
		OrderId:    orderId,
		BrandId:    brandId,
		TotalCents: totalCents,
		Currency:   "USD",
		Status:     "paid",
		Items: []model.OrderItem{
			{
				OrderItemId:     orderId + "-item-1",
				OrderId:         orderId,
				ProductId:       "sku-1",
				Quantity:        1,
				PriceCents:      totalCents,
				FulfillmentType: model.FulfillmentTypePrintOnDemand,
				DesignId:        "design-1",
			},
		},
	}
}

func stageIds(t *testing.T, env *testEnv, p *model.Pipeline) []string {
	t.Helper()
	stages, err := env.pipelines.decodeStages(p)
	if err != nil {
		t.Fatalf("decode stages: %v", err)
	}
	ids := make([]string, len(stages))
	for i, st := range stages {
		ids[i] = st.Id
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
