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

package queue

import (
	"github.com/google/wire"
	"github.com/printforge/printforge/pkg/cache"
)

// ProviderSet provides queue dependencies.
var ProviderSet = wire.NewSet(
	ProvideDispatcher,
)

// ProvideDispatcher creates the redis-backed dispatcher from the shared
// cache client.
func ProvideDispatcher(c cache.ICache, cfg Config) Dispatcher {
	return NewRedisDispatcher(c.Client(), cfg)
}
