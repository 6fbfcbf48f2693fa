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

package shutdown

import (
	"sync"

	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for the shutdown package.
var ProviderSet = wire.NewSet(NewManager)

// Manager is a latch that coordinates graceful shutdown between the signal
// handler, HTTP health checks and any component that wants to trigger exit.
type Manager struct {
	once sync.Once
	ch   chan struct{}

	mu   sync.RWMutex
	down bool
}

// NewManager creates a shutdown manager.
func NewManager() *Manager {
	return &Manager{ch: make(chan struct{})}
}

// Shutdown marks the process as shutting down and releases waiters.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.down = true
	m.mu.Unlock()
	m.once.Do(func() { close(m.ch) })
}

// Wait returns a channel closed when shutdown is requested.
func (m *Manager) Wait() <-chan struct{} {
	return m.ch
}

// IsShuttingDown reports whether shutdown has been requested.
func (m *Manager) IsShuttingDown() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.down
}
