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
	"github.com/printforge/printforge/pkg/id"
	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/safe"
	"github.com/redis/go-redis/v9"
)

// RedisDispatcher backs the Dispatcher with per-queue redis lists plus a
// delayed ZSET. A mover goroutine promotes due delayed tasks into their
// target list.
type RedisDispatcher struct {
	client    *redis.Client
	namespace string

	mu      sync.Mutex
	queues  map[string]struct{}
	stopCh  chan struct{}
	stopped bool
}

// NewRedisDispatcher creates a dispatcher and starts the delay mover.
func NewRedisDispatcher(client *redis.Client, cfg Config) *RedisDispatcher {
	cfg.SetDefaults()
	d := &RedisDispatcher{
		client:    client,
		namespace: cfg.Namespace,
		queues:    make(map[string]struct{}),
		stopCh:    make(chan struct{}),
	}
	interval := time.Duration(cfg.MoverIntervalMs) * time.Millisecond
	safe.Go(func() { d.runMover(interval) })
	return d
}

func (d *RedisDispatcher) listKey(queue string, priority int) string {
	if priority >= PriorityHigh {
		return fmt.Sprintf("%s:queue:%s:high", d.namespace, queue)
	}
	return fmt.Sprintf("%s:queue:%s", d.namespace, queue)
}

func (d *RedisDispatcher) delayedKey(queue string) string {
	return fmt.Sprintf("%s:queue:%s:delayed", d.namespace, queue)
}

// Enqueue pushes the task to the queue. With WithDelay the task lands in the
// delayed ZSET scored by its due time and is promoted by the mover.
func (d *RedisDispatcher) Enqueue(ctx context.Context, queue string, task *Task, opts ...Option) error {
	if task == nil {
		return nil
	}
	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	if task.Id == "" {
		task.Id = id.GetUlid()
	}
	if options.MaxAttempts > 0 {
		task.MaxAttempts = options.MaxAttempts
	}
	task.EnqueuedAt = time.Now().UnixMilli()

	d.trackQueue(queue)

	data, err := sonic.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	if options.Delay > 0 {
		due := time.Now().Add(options.Delay)
		member := delayedMember{
			Queue:    queue,
			Priority: options.Priority,
			Task:     data,
		}
		raw, err := sonic.Marshal(member)
		if err != nil {
			return fmt.Errorf("marshal delayed member: %w", err)
		}
		return d.client.ZAdd(ctx, d.delayedKey(queue), redis.Z{
			Score:  float64(due.UnixMilli()),
			Member: string(raw),
		}).Err()
	}

	return d.client.LPush(ctx, d.listKey(queue, options.Priority), data).Err()
}

// Close stops the delay mover. The redis client is shared and stays open.
func (d *RedisDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return nil
	}
	d.stopped = true
	close(d.stopCh)
	return nil
}

type delayedMember struct {
	Queue    string `json:"queue"`
	Priority int    `json:"priority"`
	Task     []byte `json:"task"`
}

func (d *RedisDispatcher) trackQueue(queue string) {
	d.mu.Lock()
	d.queues[queue] = struct{}{}
	d.mu.Unlock()
}

func (d *RedisDispatcher) knownQueues() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.queues))
	for q := range d.queues {
		out = append(out, q)
	}
	return out
}

func (d *RedisDispatcher) runMover(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			for _, queue := range d.knownQueues() {
				d.promoteDue(queue)
			}
		}
	}
}

// promoteDue moves delayed tasks whose due time has passed into their list.
func (d *RedisDispatcher) promoteDue(queue string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := float64(time.Now().UnixMilli())
	key := d.delayedKey(queue)
	members, err := d.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%f", now), Count: 100,
	}).Result()
	if err != nil {
		log.Warnw("promote delayed tasks failed", "queue", queue, "error", err)
		return
	}

	for _, raw := range members {
		// Only the remover of the member delivers it, so concurrent movers
		// never double-promote.
		removed, err := d.client.ZRem(ctx, key, raw).Result()
		if err != nil || removed == 0 {
			continue
		}
		var member delayedMember
		if err := sonic.Unmarshal([]byte(raw), &member); err != nil {
			log.Errorw("corrupt delayed task dropped", "queue", queue, "error", err)
			continue
		}
		if err := d.client.LPush(ctx, d.listKey(member.Queue, member.Priority), member.Task).Err(); err != nil {
			log.Errorw("promote delayed task failed", "queue", queue, "error", err)
		}
	}
}
