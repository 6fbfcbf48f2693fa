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

package event

import (
	"sync"

	"github.com/google/wire"
	"github.com/printforge/printforge/pkg/safe"
)

// ProviderSet is the Wire provider set for the event package.
var ProviderSet = wire.NewSet(NewEventBus)

// Bus is an in-process publish/subscribe channel. Delivery is synchronous,
// fire-and-forget and at-most-once; durability is the work dispatcher's
// concern, not the bus's.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewEventBus creates an empty bus.
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// RegisterHandler subscribes handler to eventName.
func (eb *Bus) RegisterHandler(eventName string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventName] = append(eb.handlers[eventName], handler)
}

// RegisterHandlerFunc subscribes a plain function to eventName.
func (eb *Bus) RegisterHandlerFunc(eventName string, fn func(Event)) {
	eb.RegisterHandler(eventName, HandlerFunc(fn))
}

// Publish delivers event to every subscriber of its name. A panicking
// handler is isolated; remaining handlers still run.
func (eb *Bus) Publish(event Event) {
	eb.mu.RLock()
	handlers := eb.handlers[event.EventName()]
	eb.mu.RUnlock()
	for _, handler := range handlers {
		h := handler
		safe.Do(func() { h.Handle(event) })
	}
}
