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
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/printforge/printforge/internal/engine/model"
	"github.com/printforge/printforge/internal/engine/service"
	"github.com/printforge/printforge/pkg/http"
)

func (rt *Router) orderRouter(r fiber.Router) {
	orders := r.Group("/orders")
	{
		orders.Post("/:orderId/process", rt.processOrder)
		orders.Get("/:orderId", rt.getOrderStatus)
	}
}

func (rt *Router) pipelineRouter(r fiber.Router) {
	pipelines := r.Group("/pipelines")
	{
		pipelines.Get("/:pipelineId", rt.getPipelineStatus)
		pipelines.Post("/:pipelineId/advance", rt.advanceStage)
		pipelines.Post("/:pipelineId/retry", rt.retryStage)
		pipelines.Post("/:pipelineId/rollback", rt.rollbackStage)
		pipelines.Post("/:pipelineId/cancel", rt.cancelPipeline)
	}
}

func (rt *Router) processOrder(c *fiber.Ctx) error {
	orderId := strings.TrimSpace(c.Params("orderId"))
	if orderId == "" {
		return http.WithRepErrMsg(c, http.BadRequest.Code, "order id is required", c.Path())
	}

	var req struct {
		BrandId        string `json:"brandId"`
		SkipRender     bool   `json:"skipRender"`
		SkipProduction bool   `json:"skipProduction"`
		RushOrder      bool   `json:"rushOrder"`
	}
	if err := c.BodyParser(&req); err != nil && err != fiber.ErrUnprocessableEntity {
		return http.WithRepErrMsg(c, http.RequestParameterParsingFailed.Code, http.RequestParameterParsingFailed.Msg, c.Path())
	}

	p, err := rt.pce.ProcessOrder(c.Context(), orderId, strings.TrimSpace(req.BrandId), service.ProcessOrderOptions{
		SkipRender:     req.SkipRender,
		SkipProduction: req.SkipProduction,
		RushOrder:      req.RushOrder,
	})
	if err != nil {
		code := errCode(err)
		return http.WithRepErrMsg(c, code.Code, err.Error(), c.Path())
	}
	return http.WithRep(c, p)
}

func (rt *Router) getOrderStatus(c *fiber.Ctx) error {
	orderId := strings.TrimSpace(c.Params("orderId"))
	status, err := rt.pce.GetOrderStatus(c.Context(), orderId, queryBrandId(c))
	if err != nil {
		code := errCode(err)
		return http.WithRepErrMsg(c, code.Code, err.Error(), c.Path())
	}
	return http.WithRep(c, status)
}

func (rt *Router) getPipelineStatus(c *fiber.Ctx) error {
	pipelineId := strings.TrimSpace(c.Params("pipelineId"))
	status, err := rt.pipelines.GetPipelineStatus(c.Context(), pipelineId, queryBrandId(c))
	if err != nil {
		code := errCode(err)
		return http.WithRepErrMsg(c, code.Code, err.Error(), c.Path())
	}
	return http.WithRep(c, status)
}

func (rt *Router) advanceStage(c *fiber.Ctx) error {
	pipelineId := strings.TrimSpace(c.Params("pipelineId"))

	var req struct {
		TargetStage string `json:"targetStage"`
	}
	if err := c.BodyParser(&req); err != nil && err != fiber.ErrUnprocessableEntity {
		return http.WithRepErrMsg(c, http.RequestParameterParsingFailed.Code, http.RequestParameterParsingFailed.Msg, c.Path())
	}

	p, err := rt.pipelines.AdvanceStage(c.Context(), pipelineId, strings.TrimSpace(req.TargetStage), model.TriggeredByManual)
	if err != nil {
		code := errCode(err)
		return http.WithRepErrMsg(c, code.Code, err.Error(), c.Path())
	}
	return http.WithRep(c, p)
}

func (rt *Router) retryStage(c *fiber.Ctx) error {
	pipelineId := strings.TrimSpace(c.Params("pipelineId"))
	p, err := rt.pipelines.RetryStage(c.Context(), pipelineId)
	if err != nil {
		code := errCode(err)
		return http.WithRepErrMsg(c, code.Code, err.Error(), c.Path())
	}
	return http.WithRep(c, p)
}

func (rt *Router) rollbackStage(c *fiber.Ctx) error {
	pipelineId := strings.TrimSpace(c.Params("pipelineId"))

	var req struct {
		TargetStage string `json:"targetStage"`
	}
	if err := c.BodyParser(&req); err != nil && err != fiber.ErrUnprocessableEntity {
		return http.WithRepErrMsg(c, http.RequestParameterParsingFailed.Code, http.RequestParameterParsingFailed.Msg, c.Path())
	}

	p, err := rt.pipelines.RollbackStage(c.Context(), pipelineId, strings.TrimSpace(req.TargetStage))
	if err != nil {
		code := errCode(err)
		return http.WithRepErrMsg(c, code.Code, err.Error(), c.Path())
	}
	return http.WithRep(c, p)
}

func (rt *Router) cancelPipeline(c *fiber.Ctx) error {
	pipelineId := strings.TrimSpace(c.Params("pipelineId"))

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil && err != fiber.ErrUnprocessableEntity {
		return http.WithRepErrMsg(c, http.RequestParameterParsingFailed.Code, http.RequestParameterParsingFailed.Msg, c.Path())
	}

	p, err := rt.pipelines.CancelPipeline(c.Context(), pipelineId, strings.TrimSpace(req.Reason))
	if err != nil {
		code := errCode(err)
		return http.WithRepErrMsg(c, code.Code, err.Error(), c.Path())
	}
	return http.WithRep(c, p)
}
