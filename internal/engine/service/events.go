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

// Event names emitted by the pipeline orchestrator.
const (
	EventPipelineCreated   = "pipeline.created"
	EventPipelineStarted   = "pipeline.started"
	EventStageStarted      = "pipeline.stage.started"
	EventStageCompleted    = "pipeline.stage.completed"
	EventStageFailed       = "pipeline.stage.failed"
	EventPipelineCompleted = "pipeline.completed"
	EventPipelineFailed    = "pipeline.failed"
	EventPipelineCancelled = "pipeline.cancelled"
	EventPipelineRollback  = "pipeline.rollback"
)

// PipelineCreatedEvent is emitted after a pipeline row is persisted.
type PipelineCreatedEvent struct {
	PipelineId string   `json:"pipelineId"`
	OrderId    string   `json:"orderId"`
	BrandId    string   `json:"brandId"`
	Stages     []string `json:"stages"`
}

func (PipelineCreatedEvent) EventName() string { return EventPipelineCreated }

// PipelineStartedEvent is emitted when a pipeline enters IN_PROGRESS.
type PipelineStartedEvent struct {
	PipelineId string `json:"pipelineId"`
	OrderId    string `json:"orderId"`
	FirstStage string `json:"firstStage"`
}

func (PipelineStartedEvent) EventName() string { return EventPipelineStarted }

// StageStartedEvent is emitted when a stage becomes current. Retry marks a
// re-entry of the same stage after a failure.
type StageStartedEvent struct {
	PipelineId string `json:"pipelineId"`
	OrderId    string `json:"orderId"`
	Stage      string `json:"stage"`
	Retry      bool   `json:"retry,omitempty"`
}

func (StageStartedEvent) EventName() string { return EventStageStarted }

// StageCompletedEvent is emitted when a stage is left forward. NextStage is
// empty when the pipeline completed.
type StageCompletedEvent struct {
	PipelineId string `json:"pipelineId"`
	OrderId    string `json:"orderId"`
	Stage      string `json:"stage"`
	NextStage  string `json:"nextStage,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

func (StageCompletedEvent) EventName() string { return EventStageCompleted }

// StageFailedEvent is emitted on a reported stage failure.
type StageFailedEvent struct {
	PipelineId string `json:"pipelineId"`
	OrderId    string `json:"orderId"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
	Retryable  bool   `json:"retryable"`
}

func (StageFailedEvent) EventName() string { return EventStageFailed }

// PipelineCompletedEvent is emitted when every stage finished.
type PipelineCompletedEvent struct {
	PipelineId string `json:"pipelineId"`
	OrderId    string `json:"orderId"`
}

func (PipelineCompletedEvent) EventName() string { return EventPipelineCompleted }

// PipelineFailedEvent is emitted on terminal failure.
type PipelineFailedEvent struct {
	PipelineId string `json:"pipelineId"`
	OrderId    string `json:"orderId"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}

func (PipelineFailedEvent) EventName() string { return EventPipelineFailed }

// PipelineCancelledEvent is emitted on user-initiated abort.
type PipelineCancelledEvent struct {
	PipelineId string `json:"pipelineId"`
	OrderId    string `json:"orderId"`
	Reason     string `json:"reason,omitempty"`
}

func (PipelineCancelledEvent) EventName() string { return EventPipelineCancelled }

// PipelineRollbackEvent is emitted on administrative stage rollback.
type PipelineRollbackEvent struct {
	PipelineId string `json:"pipelineId"`
	OrderId    string `json:"orderId"`
	FromStage  string `json:"fromStage"`
	ToStage    string `json:"toStage"`
}

func (PipelineRollbackEvent) EventName() string { return EventPipelineRollback }
