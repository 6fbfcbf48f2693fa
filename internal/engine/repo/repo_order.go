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

	"github.com/printforge/printforge/internal/engine/model"
	"github.com/printforge/printforge/pkg/database"
)

// IOrderRepository is the read-only order source consulted at pipeline
// creation time.
type IOrderRepository interface {
	Get(ctx context.Context, orderId string) (*model.Order, error)
	CountByBrand(ctx context.Context, brandId string) (int64, error)
}

type OrderRepo struct {
	database.IDatabase
}

// NewOrderRepo creates order repository.
func NewOrderRepo(db database.IDatabase) IOrderRepository {
	return &OrderRepo{IDatabase: db}
}

// Get returns the order with its line items.
func (r *OrderRepo) Get(ctx context.Context, orderId string) (*model.Order, error) {
	var one model.Order
	if err := r.Database().WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderId).
		First(&one).Error; err != nil {
		return nil, err
	}
	return &one, nil
}

// CountByBrand returns the total order count for a brand.
func (r *OrderRepo) CountByBrand(ctx context.Context, brandId string) (int64, error) {
	tx := r.Database().WithContext(ctx).Model(&model.Order{})
	if brandId != "" {
		tx = tx.Where("brand_id = ?", brandId)
	}
	return Count(tx)
}
