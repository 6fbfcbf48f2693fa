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

import "testing"

type testEvent struct {
	name string
	n    int
}

func (e testEvent) EventName() string { return e.name }

func TestBus_PublishDeliversToAllSubscribers(t *testing.T) {
	bus := NewEventBus()
	got := 0
	bus.RegisterHandlerFunc("a", func(e Event) { got += e.(testEvent).n })
	bus.RegisterHandlerFunc("a", func(e Event) { got += e.(testEvent).n * 10 })
	bus.RegisterHandlerFunc("b", func(Event) { t.Fatal("wrong event name delivered") })

	bus.Publish(testEvent{name: "a", n: 2})
	if got != 22 {
		t.Fatalf("got = %d, want 22", got)
	}
}

func TestBus_PublishNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Must not panic.
	bus.Publish(testEvent{name: "nobody"})
}

func TestBus_PanickingHandlerIsolated(t *testing.T) {
	bus := NewEventBus()
	delivered := false
	bus.RegisterHandlerFunc("a", func(Event) { panic("boom") })
	bus.RegisterHandlerFunc("a", func(Event) { delivered = true })

	bus.Publish(testEvent{name: "a"})
	if !delivered {
		t.Fatal("handler after panicking handler was not invoked")
	}
}
