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
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/safe"
	"github.com/redis/go-redis/v9"
)

// FailureCallback is invoked when a task exhausts its attempts.
type FailureCallback func(ctx context.Context, task *Task, err error)

// Worker consumes one queue and dispatches tasks to handlers registered by
// task type.
type Worker struct {
	client     *redis.Client
	dispatcher Dispatcher
	cfg        Config
	queue      string

	mu       sync.RWMutex
	handlers map[string]Handler
	onFail   FailureCallback

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a worker for the named queue. The dispatcher is used to
// re-enqueue failed tasks with the retry delay.
func NewWorker(client *redis.Client, dispatcher Dispatcher, cfg Config, queue string) *Worker {
	cfg.SetDefaults()
	return &Worker{
		client:     client,
		dispatcher: dispatcher,
		cfg:        cfg,
		queue:      queue,
		handlers:   make(map[string]Handler),
	}
}

// RegisterHandler binds a handler to a task type. Later registrations win.
func (w *Worker) RegisterHandler(taskType string, handler Handler) {
	w.mu.Lock()
	w.handlers[taskType] = handler
	w.mu.Unlock()
}

// RegisterHandlerFunc binds a function to a task type.
func (w *Worker) RegisterHandlerFunc(taskType string, fn func(ctx context.Context, task *Task) error) {
	w.RegisterHandler(taskType, HandlerFunc(fn))
}

// OnFailure sets the callback for tasks that exhausted their attempts.
func (w *Worker) OnFailure(cb FailureCallback) {
	w.mu.Lock()
	w.onFail = cb
	w.mu.Unlock()
}

// Start launches the consumer goroutines.
func (w *Worker) Start() error {
	if w.client == nil {
		return fmt.Errorf("worker requires a redis client")
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		safe.Go(func() {
			defer w.wg.Done()
			w.consume(ctx)
		})
	}
	log.Infow("queue worker started", "queue", w.queue, "concurrency", w.cfg.Concurrency)
	return nil
}

// Stop cancels consumption and waits for in-flight tasks.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) keys() []string {
	ns := w.cfg.Namespace
	return []string{
		fmt.Sprintf("%s:queue:%s:high", ns, w.queue),
		fmt.Sprintf("%s:queue:%s", ns, w.queue),
	}
}

func (w *Worker) consume(ctx context.Context) {
	timeout := time.Duration(w.cfg.PollTimeoutSeconds) * time.Second
	keys := w.keys()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// BRPOP checks keys in order, so the high priority list drains first.
		result, err := w.client.BRPop(ctx, timeout, keys...).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Warnw("queue poll failed", "queue", w.queue, "error", err)
			time.Sleep(time.Second)
			continue
		}
		if len(result) != 2 {
			continue
		}

		var task Task
		if err := sonic.Unmarshal([]byte(result[1]), &task); err != nil {
			log.Errorw("corrupt task dropped", "queue", w.queue, "error", err)
			continue
		}
		w.process(ctx, &task)
	}
}

func (w *Worker) process(ctx context.Context, task *Task) {
	w.mu.RLock()
	handler := w.handlers[task.Type]
	onFail := w.onFail
	w.mu.RUnlock()

	if handler == nil {
		log.Debugw("unknown task type", "queue", w.queue, "type", task.Type)
		return
	}

	err := handler.Handle(ctx, task)
	if err == nil {
		return
	}

	task.Attempt++
	maxAttempts := task.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = w.cfg.DefaultMaxAttempts
	}
	if task.Attempt < maxAttempts {
		delay := time.Duration(w.cfg.RetryDelaySeconds) * time.Second
		log.Warnw("task failed, retrying",
			"queue", w.queue, "type", task.Type, "taskId", task.Id,
			"attempt", task.Attempt, "delay", delay, "error", err)
		if reErr := w.dispatcher.Enqueue(ctx, w.queue, task, WithDelay(delay)); reErr != nil {
			log.Errorw("re-enqueue failed", "queue", w.queue, "taskId", task.Id, "error", reErr)
		}
		return
	}

	log.Errorw("task exhausted attempts",
		"queue", w.queue, "type", task.Type, "taskId", task.Id,
		"attempts", task.Attempt, "error", err)
	if onFail != nil {
		safe.Do(func() { onFail(ctx, task, err) })
	}
}
