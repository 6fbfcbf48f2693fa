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

package repo

import (
	"github.com/google/wire"
	"gorm.io/gorm"
)

// ProviderSet provides all repositories.
var ProviderSet = wire.NewSet(
	NewPipelineRepo,
	NewOrderRepo,
	NewRepositories,
)

// Repositories bundles every repository for service construction.
type Repositories struct {
	Pipeline IPipelineRepository
	Order    IOrderRepository
}

// NewRepositories creates the repository bundle.
func NewRepositories(pipeline IPipelineRepository, order IOrderRepository) *Repositories {
	return &Repositories{
		Pipeline: pipeline,
		Order:    order,
	}
}

// Count returns the row count for the current query on a fresh session.
func Count(tx *gorm.DB) (int64, error) {
	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
