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
	"time"
)

// Priority levels for enqueued tasks.
const (
	PriorityDefault = 0
	PriorityHigh    = 1
)

// Task is the unit of background work moved through the dispatcher.
type Task struct {
	Id          string `json:"id"`
	Type        string `json:"type"`
	Key         string `json:"key,omitempty"`
	Payload     []byte `json:"payload,omitempty"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"maxAttempts"`
	EnqueuedAt  int64  `json:"enqueuedAt"`
}

// Options control enqueue behavior.
type Options struct {
	Priority    int
	Delay       time.Duration
	MaxAttempts int
}

// Option mutates enqueue Options.
type Option func(*Options)

// WithPriority enqueues the task at the given priority level.
func WithPriority(priority int) Option {
	return func(o *Options) { o.Priority = priority }
}

// WithDelay holds the task back for d before it becomes consumable.
func WithDelay(d time.Duration) Option {
	return func(o *Options) { o.Delay = d }
}

// WithMaxAttempts caps how often a failing task is retried by the worker.
func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

// Dispatcher enqueues tasks for asynchronous execution.
type Dispatcher interface {
	Enqueue(ctx context.Context, queue string, task *Task, opts ...Option) error
	Close() error
}

// Handler executes one task.
type Handler interface {
	Handle(ctx context.Context, task *Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task *Task) error

func (f HandlerFunc) Handle(ctx context.Context, task *Task) error {
	return f(ctx, task)
}
