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

//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/printforge/printforge/internal/engine/bootstrap"
	"github.com/printforge/printforge/internal/engine/config"
	"github.com/printforge/printforge/internal/engine/repo"
	"github.com/printforge/printforge/internal/engine/router"
	"github.com/printforge/printforge/internal/engine/scheduler"
	"github.com/printforge/printforge/internal/engine/service"
	"github.com/printforge/printforge/internal/engine/taskqueue"
	"github.com/printforge/printforge/internal/pkg/queue"
	"github.com/printforge/printforge/pkg/cache"
	"github.com/printforge/printforge/pkg/database"
	"github.com/printforge/printforge/pkg/event"
	"github.com/printforge/printforge/pkg/journal"
	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/metrics"
	"github.com/printforge/printforge/pkg/shutdown"
)

func initApp(configPath string) (*bootstrap.App, func(), error) {
	panic(wire.Build(
		// 配置层
		config.ProviderSet,
		// 日志层（依赖 config）
		log.ProviderSet,
		// 数据库层（依赖 config, log）
		database.ProviderSet,
		// 缓存层（依赖 config）
		cache.ProviderSet,
		// 任务队列层（依赖 config, cache）
		queue.ProviderSet,
		// 指标层（依赖 config）
		metrics.ProviderSet,
		// 事件层
		event.ProviderSet,
		// 事件日志层（依赖 config）
		journal.ProviderSet,
		// 仓储层（依赖 database）
		repo.ProviderSet,
		// 服务层（依赖 repo, database, cache, queue, event, journal）
		service.ProviderSet,
		// 路由层（依赖 config, service）
		router.ProviderSet,
		// 队列执行层（依赖 cache, queue, service）
		taskqueue.ProviderSet,
		// 巡检层（依赖 service, config）
		scheduler.ProviderSet,
		// 优雅退出
		shutdown.ProviderSet,
		// 应用层
		bootstrap.NewApp,
	))
}
