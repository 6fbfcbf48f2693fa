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

package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/wire"
	"github.com/printforge/printforge/internal/engine/config"
	"github.com/printforge/printforge/internal/engine/service"
	"github.com/printforge/printforge/pkg/http"
	"github.com/printforge/printforge/pkg/http/middleware"
	"github.com/printforge/printforge/pkg/shutdown"
)

// ProviderSet provides the HTTP router.
var ProviderSet = wire.NewSet(NewRouter)

// Router builds the fiber application serving the orchestrator API.
type Router struct {
	conf        *config.AppConfig
	pipelines   *service.PipelineService
	pce         *service.PceService
	stats       *service.StatsService
	shutdownMgr *shutdown.Manager
}

// NewRouter creates the router.
func NewRouter(
	conf *config.AppConfig,
	pipelines *service.PipelineService,
	pce *service.PceService,
	stats *service.StatsService,
	shutdownMgr *shutdown.Manager,
) *Router {
	return &Router{
		conf:        conf,
		pipelines:   pipelines,
		pce:         pce,
		stats:       stats,
		shutdownMgr: shutdownMgr,
	}
}

// Router assembles the fiber app with middleware and routes.
func (rt *Router) Router() *fiber.App {
	httpConf := rt.conf.Http
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(httpConf.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(httpConf.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(httpConf.IdleTimeout) * time.Second,
		BodyLimit:    httpConf.BodyLimit,
	})

	app.Use(middleware.CorsMiddleware())
	app.Use(middleware.HttpMetricsMiddleware())
	if httpConf.AccessLog {
		app.Use(middleware.AccessLogMiddleware())
	}

	app.Get("/healthz", rt.health)

	v1 := app.Group("/api/v1")
	rt.orderRouter(v1)
	rt.pipelineRouter(v1)
	rt.dashboardRouter(v1)

	return app
}

func (rt *Router) health(c *fiber.Ctx) error {
	if rt.shutdownMgr != nil && rt.shutdownMgr.IsShuttingDown() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "shutting_down"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// brandId comes from the query on read endpoints and from the body on
// mutations; tenant scoping happens in the service layer.
func queryBrandId(c *fiber.Ctx) string {
	return c.Query("brandId")
}

func errCode(err error) http.Code {
	switch err {
	case service.ErrPipelineNotFound, service.ErrOrderNotFound:
		return http.NotFound
	case service.ErrConcurrentModification:
		return http.Conflict
	case service.ErrCannotCancel, service.ErrCannotRollback,
		service.ErrInvalidRollbackTarget, service.ErrInvalidTargetStage,
		service.ErrPipelineTerminal, service.ErrPipelineExists:
		return http.BadRequest
	}
	return http.Failed
}
