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

package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/printforge/printforge/pkg/http"
)

func (rt *Router) dashboardRouter(r fiber.Router) {
	dashboard := r.Group("/dashboard")
	{
		dashboard.Get("/stats", rt.dashboardStats)
		dashboard.Get("/alerts", rt.dashboardAlerts)
	}
}

func (rt *Router) dashboardStats(c *fiber.Ctx) error {
	stats, err := rt.stats.GetDashboardStats(c.Context(), queryBrandId(c))
	if err != nil {
		code := errCode(err)
		return http.WithRepErrMsg(c, code.Code, err.Error(), c.Path())
	}
	return http.WithRep(c, stats)
}

func (rt *Router) dashboardAlerts(c *fiber.Ctx) error {
	limit := http.QueryInt(c, "limit", 20)
	alerts, err := rt.stats.GetRecentAlerts(c.Context(), queryBrandId(c), limit)
	if err != nil {
		code := errCode(err)
		return http.WithRepErrMsg(c, code.Code, err.Error(), c.Path())
	}
	return http.WithRep(c, alerts)
}
