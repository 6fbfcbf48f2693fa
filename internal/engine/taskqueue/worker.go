// Copyright 2026 Printforge Authors.
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

package taskqueue

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/wire"
	"github.com/printforge/printforge/internal/engine/model"
	"github.com/printforge/printforge/internal/engine/service"
	"github.com/printforge/printforge/internal/pkg/queue"
	"github.com/printforge/printforge/pkg/cache"
	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/taskqueue"
)

// ProviderSet provides the configured queue worker.
var ProviderSet = wire.NewSet(ProvideWorker)

// ProvideWorker builds the pipeline queue consumer. Each handler performs
// its stage work and advances the pipeline on success; exhausted tasks are
// reported back through the stage-failure path. The worker is not started
// here: bootstrap starts it once the bus subscribers are in place.
func ProvideWorker(
	c cache.ICache,
	dispatcher queue.Dispatcher,
	cfg queue.Config,
	pipelines *service.PipelineService,
	pce *service.PceService,
) (*queue.Worker, error) {
	if c == nil {
		return nil, fmt.Errorf("worker requires redis")
	}
	w := queue.NewWorker(c.Client(), dispatcher, cfg, service.QueuePipeline)

	advance := func(ctx context.Context, task *queue.Task) error {
		var payload taskqueue.StageTaskPayload
		if err := sonic.Unmarshal(task.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal stage payload: %w", err)
		}
		log.Infow("executing stage",
			"pipelineId", payload.PipelineId, "stage", payload.Stage, "type", task.Type)
		_, err := pipelines.AdvanceStage(ctx, payload.PipelineId, "", model.TriggeredBySystem)
		if err == service.ErrPipelineTerminal {
			// stale task for a finished pipeline, drop it
			return nil
		}
		return err
	}

	for _, taskType := range []string{
		taskqueue.TaskTypeExecuteStage,
		taskqueue.TaskTypeCreateProduction,
		taskqueue.TaskTypeCreateFulfillment,
		taskqueue.TaskTypeShipFulfillment,
	} {
		w.RegisterHandlerFunc(taskType, advance)
	}

	w.RegisterHandlerFunc(taskqueue.TaskTypeRenderItem, func(ctx context.Context, task *queue.Task) error {
		var payload taskqueue.RenderItemTaskPayload
		if err := sonic.Unmarshal(task.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal render payload: %w", err)
		}
		log.Infow("rendering order item",
			"pipelineId", payload.PipelineId, "orderItemId", payload.OrderItemId, "designRef", payload.DesignRef)
		_, err := pipelines.AdvanceStage(ctx, payload.PipelineId, "", model.TriggeredBySystem)
		if err == service.ErrPipelineTerminal || err == service.ErrConcurrentModification {
			// another item's render already advanced the stage
			return nil
		}
		return err
	})

	w.RegisterHandlerFunc(taskqueue.TaskTypeRetryStage, func(ctx context.Context, task *queue.Task) error {
		var payload taskqueue.StageTaskPayload
		if err := sonic.Unmarshal(task.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal retry payload: %w", err)
		}
		// RetryStage publishes the retry start event; the bus subscriber
		// re-enqueues the stage work.
		_, err := pipelines.RetryStage(ctx, payload.PipelineId)
		return err
	})

	w.OnFailure(func(ctx context.Context, task *queue.Task, err error) {
		var payload taskqueue.StageTaskPayload
		if uerr := sonic.Unmarshal(task.Payload, &payload); uerr != nil {
			log.Errorw("undecodable exhausted task", "taskId", task.Id, "error", uerr)
			return
		}
		if herr := pce.HandleStageFailed(ctx, payload.PipelineId, payload.Stage, err.Error(), false); herr != nil {
			log.Errorw("report exhausted stage failed",
				"pipelineId", payload.PipelineId, "stage", payload.Stage, "error", herr)
		}
	})

	return w, nil
}
