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

package config

import (
	"github.com/google/wire"
	"github.com/printforge/printforge/internal/pkg/queue"
	"github.com/printforge/printforge/pkg/cache"
	"github.com/printforge/printforge/pkg/database"
	"github.com/printforge/printforge/pkg/http"
	"github.com/printforge/printforge/pkg/journal"
	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/metrics"
)

// ProviderSet loads the config file and fans sub-configs out to the layers
// that need them.
var ProviderSet = wire.NewSet(
	NewConf,
	ProvideLogConf,
	ProvideHttpConf,
	ProvideDatabaseConf,
	ProvideRedisConf,
	ProvideMetricsConf,
	ProvideQueueConf,
	ProvideJournalConf,
	ProvideEngineConf,
)

func ProvideLogConf(c *AppConfig) *log.Conf { return &c.Log }
func ProvideHttpConf(c *AppConfig) http.Http { return c.Http }
func ProvideDatabaseConf(c *AppConfig) database.Database { return c.Database }
func ProvideRedisConf(c *AppConfig) cache.Redis { return c.Redis }
func ProvideMetricsConf(c *AppConfig) metrics.MetricsConfig { return c.Metrics }
func ProvideQueueConf(c *AppConfig) queue.Config { return c.Queue }
func ProvideJournalConf(c *AppConfig) journal.Config { return c.Journal }
func ProvideEngineConf(c *AppConfig) EngineConfig { return c.Engine }
