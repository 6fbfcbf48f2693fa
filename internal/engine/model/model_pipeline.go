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

package model

import (
	"time"

	"gorm.io/datatypes"
)

// Pipeline status values.
const (
	PipelineStatusCreated    = "CREATED"
	PipelineStatusInProgress = "IN_PROGRESS"
	PipelineStatusCompleted  = "COMPLETED"
	PipelineStatusFailed     = "FAILED"
	PipelineStatusCancelled  = "CANCELLED"
)

// Transition trigger sources.
const (
	TriggeredBySystem   = "system"
	TriggeredByManual   = "manual"
	TriggeredByRetry    = "retry"
	TriggeredByRollback = "rollback"
)

// IsTerminalStatus reports whether a pipeline status admits no further
// progression.
func IsTerminalStatus(status string) bool {
	switch status {
	case PipelineStatusCompleted, PipelineStatusFailed, PipelineStatusCancelled:
		return true
	}
	return false
}

// StageDefinition is one entry of a pipeline's frozen stage plan.
type StageDefinition struct {
	Id          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	Required    bool           `json:"required"`
	Config      map[string]any `json:"config,omitempty"`
}

// Pipeline tracks one order's fulfillment path. Exactly one per order.
type Pipeline struct {
	BaseModel
	PipelineId          string         `gorm:"column:pipeline_id;uniqueIndex" json:"pipelineId"`
	OrderId             string         `gorm:"column:order_id;uniqueIndex" json:"orderId"`
	BrandId             string         `gorm:"column:brand_id;index" json:"brandId"`
	Stages              datatypes.JSON `gorm:"column:stages;type:json" json:"stages"` // []StageDefinition, frozen at creation
	CurrentStage        string         `gorm:"column:current_stage" json:"currentStage"`
	Progress            int            `gorm:"column:progress" json:"progress"`
	Status              string         `gorm:"column:status;index" json:"status"`
	Version             int64          `gorm:"column:version" json:"version"`
	Metadata            datatypes.JSON `gorm:"column:metadata;type:json" json:"metadata"`
	EstimatedCompletion *time.Time     `gorm:"column:estimated_completion" json:"estimatedCompletion"`
	StartedAt           *time.Time     `gorm:"column:started_at" json:"startedAt"`
	CompletedAt         *time.Time     `gorm:"column:completed_at" json:"completedAt"`
	FailedAt            *time.Time     `gorm:"column:failed_at" json:"failedAt"`
	CancelledAt         *time.Time     `gorm:"column:cancelled_at" json:"cancelledAt"`
}

func (Pipeline) TableName() string {
	return "t_pipeline"
}

// PipelineTransition is the append-only audit trail of stage changes.
type PipelineTransition struct {
	Id          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PipelineId  string    `gorm:"column:pipeline_id;index" json:"pipelineId"`
	FromStage   string    `gorm:"column:from_stage" json:"fromStage"`
	ToStage     string    `gorm:"column:to_stage" json:"toStage"`
	TriggeredBy string    `gorm:"column:triggered_by" json:"triggeredBy"`
	Duration    int64     `gorm:"column:duration" json:"duration"` // ms since previous transition
	CreateTime  time.Time `gorm:"column:create_time;autoCreateTime" json:"createTime"`
}

func (PipelineTransition) TableName() string {
	return "l_pipeline_transitions"
}

// PipelineError records one failure occurrence. Open while resolved_at is
// null.
type PipelineError struct {
	Id         uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PipelineId string         `gorm:"column:pipeline_id;index" json:"pipelineId"`
	Stage      string         `gorm:"column:stage" json:"stage"`
	Message    string         `gorm:"column:message;type:text" json:"message"`
	Details    datatypes.JSON `gorm:"column:details;type:json" json:"details,omitempty"`
	Retryable  bool           `gorm:"column:retryable" json:"retryable"`
	RetryCount int            `gorm:"column:retry_count" json:"retryCount"`
	ResolvedAt *time.Time     `gorm:"column:resolved_at" json:"resolvedAt"`
	CreateTime time.Time      `gorm:"column:create_time;autoCreateTime;index" json:"createTime"`
}

func (PipelineError) TableName() string {
	return "l_pipeline_errors"
}
