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

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/printforge/printforge/internal/engine/config"
	"github.com/printforge/printforge/internal/engine/router"
	"github.com/printforge/printforge/internal/engine/scheduler"
	"github.com/printforge/printforge/internal/engine/service"
	"github.com/printforge/printforge/internal/pkg/queue"
	"github.com/printforge/printforge/pkg/journal"
	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/metrics"
	"github.com/printforge/printforge/pkg/safe"
	"github.com/printforge/printforge/pkg/shutdown"
	"go.uber.org/zap"
)

// App bundles everything the engine process runs: the HTTP API, the queue
// worker, the sweep scheduler and the metrics endpoint.
type App struct {
	HttpApp       *fiber.App
	MetricsServer *metrics.Server
	Worker        *queue.Worker
	Scheduler     *scheduler.Scheduler
	Dispatcher    queue.Dispatcher
	Journal       *journal.Journal
	Logger        *log.Logger
	AppConf       *config.AppConfig
	ShutdownMgr   *shutdown.Manager
}

// InitAppFunc init app function type
type InitAppFunc func(configPath string) (*App, func(), error)

func NewApp(
	rt *router.Router,
	logger *log.Logger,
	metricsServer *metrics.Server,
	worker *queue.Worker,
	sched *scheduler.Scheduler,
	dispatcher queue.Dispatcher,
	jnl *journal.Journal,
	pce *service.PceService,
	stats *service.StatsService,
	appConf *config.AppConfig,
	shutdownMgr *shutdown.Manager,
) (*App, func(), error) {
	// wire bus subscribers before any request or task can publish
	pce.RegisterEventHandlers()
	stats.RegisterEventHandlers()

	app := &App{
		HttpApp:       rt.Router(),
		MetricsServer: metricsServer,
		Worker:        worker,
		Scheduler:     sched,
		Dispatcher:    dispatcher,
		Journal:       jnl,
		Logger:        logger,
		AppConf:       appConf,
		ShutdownMgr:   shutdownMgr,
	}

	cleanup := func() {
		if metricsServer != nil {
			log.Info("Shutting down metrics server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				log.Errorw("Failed to stop metrics server", zap.Error(err))
			}
		}

		if sched != nil {
			log.Info("Shutting down scheduler...")
			sched.Stop()
		}

		if worker != nil {
			log.Info("Shutting down queue worker...")
			worker.Stop()
		}

		if dispatcher != nil {
			if err := dispatcher.Close(); err != nil {
				log.Errorw("Failed to close dispatcher", zap.Error(err))
			}
		}

		if jnl != nil {
			log.Info("Shutting down event journal...")
			if err := jnl.Close(); err != nil {
				log.Errorw("Failed to close event journal", zap.Error(err))
			}
		}
	}

	return app, cleanup, nil
}

// Bootstrap init app, return App instance and cleanup function
func Bootstrap(configFile string, initApp InitAppFunc) (*App, func(), *config.AppConfig, error) {
	app, cleanup, err := initApp(configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	return app, cleanup, app.AppConf, nil
}

// Run start app and wait for exit signal, then gracefully shutdown
func Run(app *App, cleanup func()) {
	appConf := app.AppConf

	// start metrics server
	if app.MetricsServer != nil {
		if err := app.MetricsServer.Start(); err != nil {
			log.Errorw("Metrics server failed", zap.Error(err))
		}
	}

	// start queue worker, bus subscribers are already registered by NewApp
	if app.Worker != nil {
		if err := app.Worker.Start(); err != nil {
			log.Errorw("Queue worker failed", zap.Error(err))
		}
	}

	// start staleness sweep
	if app.Scheduler != nil {
		if err := app.Scheduler.Start(); err != nil {
			log.Errorw("Scheduler failed", zap.Error(err))
		}
	}

	// set signal listener (graceful shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// start HTTP server (async)
	safe.Go(func() {
		addr := appConf.Http.Host + ":" + fmt.Sprintf("%d", appConf.Http.Port)
		log.Infow("HTTP listener started",
			"address", addr,
		)
		if err := app.HttpApp.Listen(addr); err != nil {
			log.Errorw("HTTP listener failed",
				"address", addr,
				zap.Error(err),
			)
		}
	})

	// wait for exit signal (either from OS signal or HTTP shutdown endpoint)
	select {
	case sig := <-quit:
		log.Infow("Received OS signal, shutting down gracefully...", "signal", sig)
		// mark as shutting down for health check
		if app.ShutdownMgr != nil {
			app.ShutdownMgr.Shutdown()
		}
	case <-app.ShutdownMgr.Wait():
		log.Info("Received shutdown request via HTTP endpoint, shutting down gracefully...")
	}

	// close HTTP server first so no new work arrives
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := app.HttpApp.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server shut down gracefully")
	}

	// close worker, scheduler and other resources
	cleanup()

	log.Info("Server shutdown complete")
}
