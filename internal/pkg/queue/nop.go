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
	"context"
	"sync"
)

// NopDispatcher discards every task. Used when the queue is disabled.
type NopDispatcher struct{}

func (NopDispatcher) Enqueue(context.Context, string, *Task, ...Option) error { return nil }
func (NopDispatcher) Close() error                                            { return nil }

// EnqueuedTask captures one Enqueue call for assertions.
type EnqueuedTask struct {
	Queue   string
	Task    Task
	Options Options
}

// RecordingDispatcher collects enqueued tasks in memory.
type RecordingDispatcher struct {
	mu    sync.Mutex
	tasks []EnqueuedTask
}

func NewRecordingDispatcher() *RecordingDispatcher {
	return &RecordingDispatcher{}
}

func (d *RecordingDispatcher) Enqueue(_ context.Context, queue string, task *Task, opts ...Option) error {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	d.mu.Lock()
	d.tasks = append(d.tasks, EnqueuedTask{Queue: queue, Task: *task, Options: options})
	d.mu.Unlock()
	return nil
}

func (d *RecordingDispatcher) Close() error { return nil }

// Tasks returns a snapshot of everything enqueued so far.
func (d *RecordingDispatcher) Tasks() []EnqueuedTask {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]EnqueuedTask, len(d.tasks))
	copy(out, d.tasks)
	return out
}

// Reset clears the recorded tasks.
func (d *RecordingDispatcher) Reset() {
	d.mu.Lock()
	d.tasks = nil
	d.mu.Unlock()
}
