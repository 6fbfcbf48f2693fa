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

package taskqueue

import "strings"

const (
	TaskTypeExecuteStage      = "pipeline.execute_stage"
	TaskTypeRetryStage        = "pipeline.retry_stage"
	TaskTypeRenderItem        = "production.render_item"
	TaskTypeCreateProduction  = "production.create_order"
	TaskTypeCreateFulfillment = "fulfillment.create_order"
	TaskTypeShipFulfillment   = "fulfillment.ship_order"
)

// StageTaskPayload is the payload for pipeline stage execution.
type StageTaskPayload struct {
	TenantId   string `json:"tenantId,omitempty"`
	OrderId    string `json:"orderId,omitempty"`
	PipelineId string `json:"pipelineId,omitempty"`
	Stage      string `json:"stage,omitempty"`
	Attempt    int32  `json:"attempt,omitempty"`
	Retry      bool   `json:"retry,omitempty"`
	RushOrder  bool   `json:"rushOrder,omitempty"`
}

// RenderItemTaskPayload is the payload for rendering a single order item.
type RenderItemTaskPayload struct {
	TenantId    string `json:"tenantId,omitempty"`
	OrderId     string `json:"orderId,omitempty"`
	PipelineId  string `json:"pipelineId,omitempty"`
	OrderItemId string `json:"orderItemId,omitempty"`
	DesignRef   string `json:"designRef,omitempty"`
}

// StageKey returns a composite key for the stage task.
func StageKey(payload *StageTaskPayload) string {
	if payload == nil {
		return ""
	}
	parts := []string{
		payload.TenantId,
		payload.OrderId,
		payload.PipelineId,
		payload.Stage,
	}
	return strings.Trim(strings.Join(parts, ":"), ":")
}

// RenderItemKey returns a composite key for the render task.
func RenderItemKey(payload *RenderItemTaskPayload) string {
	if payload == nil {
		return ""
	}
	parts := []string{
		payload.TenantId,
		payload.OrderId,
		payload.PipelineId,
		payload.OrderItemId,
	}
	return strings.Trim(strings.Join(parts, ":"), ":")
}
