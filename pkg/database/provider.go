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

package database

import (
	"github.com/google/wire"
	"github.com/printforge/printforge/pkg/log"
	"gorm.io/gorm"
)

// ProviderSet provides database-related dependencies.
var ProviderSet = wire.NewSet(
	ProvideManager,
	ProvideGorm,
	ProvideIDatabase,
)

// ProvideManager creates the database Manager. The logger parameter forces
// logging to initialize first.
func ProvideManager(conf Database, _ *log.Logger) (Manager, error) {
	return NewManager(conf)
}

// ProvideGorm exposes the raw gorm handle from the Manager.
func ProvideGorm(manager Manager) *gorm.DB {
	return manager.DB()
}

// ProvideIDatabase provides the IDatabase handle repositories embed.
func ProvideIDatabase(manager Manager) IDatabase {
	return NewDatabaseAdapter(manager)
}
