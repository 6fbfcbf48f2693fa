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

package repo

import (
	"context"
	"time"

	"github.com/printforge/printforge/internal/engine/model"
	"github.com/printforge/printforge/pkg/database"
	"gorm.io/gorm"
)

// IPipelineRepository defines persistence methods for pipelines, their
// transition audit trail and error records.
type IPipelineRepository interface {
	Create(ctx context.Context, pipeline *model.Pipeline) error
	Get(ctx context.Context, pipelineId string) (*model.Pipeline, error)
	GetByOrderId(ctx context.Context, orderId string) (*model.Pipeline, error)
	GetScoped(ctx context.Context, pipelineId, brandId string) (*model.Pipeline, error)
	Update(ctx context.Context, pipelineId string, updates map[string]any) error
	UpdateWhereVersion(ctx context.Context, pipelineId string, version int64, updates map[string]any) (int64, error)

	CreateTransition(ctx context.Context, transition *model.PipelineTransition) error
	ListTransitions(ctx context.Context, pipelineId string) ([]*model.PipelineTransition, error)

	CreateError(ctx context.Context, pipelineError *model.PipelineError) error
	ListOpenErrors(ctx context.Context, pipelineId string) ([]*model.PipelineError, error)
	IncrementOpenErrorRetries(ctx context.Context, pipelineId, stage string) error
	ResolveOpenErrors(ctx context.Context, pipelineId string, resolvedAt time.Time) error

	CountByStatus(ctx context.Context, brandId, status string) (int64, error)
	CountCompletedSince(ctx context.Context, brandId string, since time.Time) (int64, error)
	CountOpenErrorsSince(ctx context.Context, brandId string, since time.Time) (int64, error)
	ListStale(ctx context.Context, threshold time.Time, limit int) ([]*model.Pipeline, error)
	ListRecentErrors(ctx context.Context, brandId string, limit int) ([]*model.PipelineError, error)
}

type PipelineRepo struct {
	database.IDatabase
}

// NewPipelineRepo creates pipeline repository.
func NewPipelineRepo(db database.IDatabase) IPipelineRepository {
	return &PipelineRepo{IDatabase: db}
}

// Create creates a pipeline.
func (r *PipelineRepo) Create(ctx context.Context, pipeline *model.Pipeline) error {
	return r.Database().WithContext(ctx).Create(pipeline).Error
}

// Get returns pipeline by pipelineId.
func (r *PipelineRepo) Get(ctx context.Context, pipelineId string) (*model.Pipeline, error) {
	var one model.Pipeline
	if err := r.Database().WithContext(ctx).
		Where("pipeline_id = ?", pipelineId).
		First(&one).Error; err != nil {
		return nil, err
	}
	return &one, nil
}

// GetByOrderId returns the pipeline bound to an order.
func (r *PipelineRepo) GetByOrderId(ctx context.Context, orderId string) (*model.Pipeline, error) {
	var one model.Pipeline
	if err := r.Database().WithContext(ctx).
		Where("order_id = ?", orderId).
		First(&one).Error; err != nil {
		return nil, err
	}
	return &one, nil
}

// GetScoped returns the pipeline only if it belongs to the brand.
func (r *PipelineRepo) GetScoped(ctx context.Context, pipelineId, brandId string) (*model.Pipeline, error) {
	var one model.Pipeline
	if err := r.Database().WithContext(ctx).
		Where("pipeline_id = ? AND brand_id = ?", pipelineId, brandId).
		First(&one).Error; err != nil {
		return nil, err
	}
	return &one, nil
}

// Update updates a pipeline unconditionally. Administrative paths only;
// advancement goes through UpdateWhereVersion.
func (r *PipelineRepo) Update(ctx context.Context, pipelineId string, updates map[string]any) error {
	return r.Database().WithContext(ctx).
		Model(&model.Pipeline{}).
		Where("pipeline_id = ?", pipelineId).
		Updates(updates).Error
}

// UpdateWhereVersion applies updates only when the stored version still
// matches. The returned row count is 0 when a concurrent writer won.
func (r *PipelineRepo) UpdateWhereVersion(ctx context.Context, pipelineId string, version int64, updates map[string]any) (int64, error) {
	tx := r.Database().WithContext(ctx).
		Model(&model.Pipeline{}).
		Where("pipeline_id = ? AND version = ?", pipelineId, version).
		Updates(updates)
	return tx.RowsAffected, tx.Error
}

// CreateTransition appends one audit record.
func (r *PipelineRepo) CreateTransition(ctx context.Context, transition *model.PipelineTransition) error {
	return r.Database().WithContext(ctx).Create(transition).Error
}

// ListTransitions returns the audit trail oldest first.
func (r *PipelineRepo) ListTransitions(ctx context.Context, pipelineId string) ([]*model.PipelineTransition, error) {
	var list []*model.PipelineTransition
	err := r.Database().WithContext(ctx).
		Where("pipeline_id = ?", pipelineId).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// CreateError appends one failure record.
func (r *PipelineRepo) CreateError(ctx context.Context, pipelineError *model.PipelineError) error {
	return r.Database().WithContext(ctx).Create(pipelineError).Error
}

// ListOpenErrors returns unresolved errors for a pipeline, newest first.
func (r *PipelineRepo) ListOpenErrors(ctx context.Context, pipelineId string) ([]*model.PipelineError, error) {
	var list []*model.PipelineError
	err := r.Database().WithContext(ctx).
		Where("pipeline_id = ? AND resolved_at IS NULL", pipelineId).
		Order("id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// IncrementOpenErrorRetries bumps retry_count on open errors for the stage.
func (r *PipelineRepo) IncrementOpenErrorRetries(ctx context.Context, pipelineId, stage string) error {
	return r.Database().WithContext(ctx).
		Model(&model.PipelineError{}).
		Where("pipeline_id = ? AND stage = ? AND resolved_at IS NULL", pipelineId, stage).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
}

// ResolveOpenErrors stamps resolved_at on every open error of the pipeline.
func (r *PipelineRepo) ResolveOpenErrors(ctx context.Context, pipelineId string, resolvedAt time.Time) error {
	return r.Database().WithContext(ctx).
		Model(&model.PipelineError{}).
		Where("pipeline_id = ? AND resolved_at IS NULL", pipelineId).
		Update("resolved_at", resolvedAt).Error
}

// CountByStatus counts pipelines in a status, optionally scoped to a brand.
func (r *PipelineRepo) CountByStatus(ctx context.Context, brandId, status string) (int64, error) {
	tx := r.Database().WithContext(ctx).
		Model(&model.Pipeline{}).
		Where("status = ?", status)
	if brandId != "" {
		tx = tx.Where("brand_id = ?", brandId)
	}
	return Count(tx)
}

// CountCompletedSince counts pipelines completed at or after since.
func (r *PipelineRepo) CountCompletedSince(ctx context.Context, brandId string, since time.Time) (int64, error) {
	tx := r.Database().WithContext(ctx).
		Model(&model.Pipeline{}).
		Where("status = ? AND completed_at >= ?", model.PipelineStatusCompleted, since)
	if brandId != "" {
		tx = tx.Where("brand_id = ?", brandId)
	}
	return Count(tx)
}

// CountOpenErrorsSince counts unresolved errors created at or after since,
// joined to the brand's pipelines.
func (r *PipelineRepo) CountOpenErrorsSince(ctx context.Context, brandId string, since time.Time) (int64, error) {
	tx := r.Database().WithContext(ctx).
		Model(&model.PipelineError{}).
		Where("l_pipeline_errors.resolved_at IS NULL AND l_pipeline_errors.create_time >= ?", since)
	if brandId != "" {
		tx = tx.Joins("JOIN t_pipeline ON t_pipeline.pipeline_id = l_pipeline_errors.pipeline_id").
			Where("t_pipeline.brand_id = ?", brandId)
	}
	return Count(tx)
}

// ListStale returns in-progress pipelines untouched since threshold.
func (r *PipelineRepo) ListStale(ctx context.Context, threshold time.Time, limit int) ([]*model.Pipeline, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []*model.Pipeline
	err := r.Database().WithContext(ctx).
		Where("status = ? AND update_time < ?", model.PipelineStatusInProgress, threshold).
		Order("update_time ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListRecentErrors returns the newest error records for a brand.
func (r *PipelineRepo) ListRecentErrors(ctx context.Context, brandId string, limit int) ([]*model.PipelineError, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	tx := r.Database().WithContext(ctx).Model(&model.PipelineError{})
	if brandId != "" {
		tx = tx.Joins("JOIN t_pipeline ON t_pipeline.pipeline_id = l_pipeline_errors.pipeline_id").
			Where("t_pipeline.brand_id = ?", brandId)
	}
	var list []*model.PipelineError
	err := tx.Order("l_pipeline_errors.id DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
