// Copyright 2025 Printforge Authors.
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

	"github.com/printforge/printforge/internal/engine/config"
	"github.com/printforge/printforge/internal/engine/repo"
	"github.com/printforge/printforge/internal/pkg/pipeline"
	"github.com/printforge/printforge/internal/pkg/queue"
	"github.com/printforge/printforge/pkg/cache"
	"github.com/printforge/printforge/pkg/database"
	"github.com/printforge/printforge/pkg/event"
	"github.com/printforge/printforge/pkg/journal"
	"github.com/printforge/printforge/pkg/log"
)

// Services bundles shared infrastructure for the service layer.
type Services struct {
	Db         database.IDatabase
	Cache      cache.ICache
	Repos      *repo.Repositories
	Bus        *event.Bus
	Dispatcher queue.Dispatcher
	Journal    *journal.Journal
	Engine     config.EngineConfig
	Estimates  pipeline.Estimates
}

// NewServices creates the shared service bundle.
func NewServices(
	db database.IDatabase,
	c cache.ICache,
	repos *repo.Repositories,
	bus *event.Bus,
	dispatcher queue.Dispatcher,
	jnl *journal.Journal,
	engineConf config.EngineConfig,
) *Services {
	return &Services{
		Db:         db,
		Cache:      c,
		Repos:      repos,
		Bus:        bus,
		Dispatcher: dispatcher,
		Journal:    jnl,
		Engine:     engineConf,
		Estimates:  pipeline.NewEstimates(engineConf.StageEstimateHours),
	}
}

// publish tees the event into the durable journal, then delivers it on the
// in-process bus. Journal failures are logged and never block delivery.
func (s *Services) publish(ctx context.Context, evt event.Event) {
	if s.Journal != nil {
		if _, err := s.Journal.Append(ctx, evt.EventName(), evt); err != nil {
			log.Warnw("journal append failed", "event", evt.EventName(), "error", err)
		}
	}
	s.Bus.Publish(evt)
}
