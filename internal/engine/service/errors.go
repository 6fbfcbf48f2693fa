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

package service

import "errors"

var (
	// ErrPipelineNotFound is returned when no pipeline matches the id (and
	// brand scope, where applicable).
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrOrderNotFound is returned when the order id is unknown.
	ErrOrderNotFound = errors.New("order not found")

	// ErrPipelineExists is returned on a duplicate create for the same order.
	ErrPipelineExists = errors.New("pipeline already exists for order")

	// ErrConcurrentModification is returned when the optimistic version
	// check loses a race. The caller must reload and decide; the service
	// never retries on its own.
	ErrConcurrentModification = errors.New("pipeline modified concurrently")

	// ErrCannotCancel is returned for cancel attempts on terminal pipelines.
	ErrCannotCancel = errors.New("cannot cancel pipeline in terminal state")

	// ErrCannotRollback is returned when no earlier stage exists.
	ErrCannotRollback = errors.New("cannot rollback from first stage")

	// ErrInvalidRollbackTarget is returned when the target is not an earlier
	// stage of the pipeline.
	ErrInvalidRollbackTarget = errors.New("invalid rollback target stage")

	// ErrInvalidTargetStage is returned when an advance target is not part
	// of the pipeline's stage plan.
	ErrInvalidTargetStage = errors.New("target stage not in pipeline stages")

	// ErrPipelineTerminal is returned when advancing a finished pipeline.
	ErrPipelineTerminal = errors.New("pipeline already in terminal state")
)
