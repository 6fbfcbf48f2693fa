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

package pipeline

import "fmt"

// Pipeline stages. StageCompleted is the terminal marker, not a work stage.
const (
	StageCreated      = "CREATED"
	StageValidation   = "VALIDATION"
	StageRender       = "RENDER"
	StageProduction   = "PRODUCTION"
	StageQualityCheck = "QUALITY_CHECK"
	StageFulfillment  = "FULFILLMENT"
	StageShipping     = "SHIPPING"
	StageDelivery     = "DELIVERY"
	StageCompleted    = "COMPLETED"
	StageFailed       = "FAILED"
	StageCancelled    = "CANCELLED"
)

// ErrInvalidTransition reports an edge the stage graph does not allow.
type ErrInvalidTransition struct {
	From string
	To   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid stage transition from %s to %s", e.From, e.To)
}

// transitions is the allowed stage graph. FAILED and CANCELLED are reachable
// from everywhere and handled in CanTransition directly.
var transitions = map[string][]string{
	StageCreated:      {StageValidation},
	StageValidation:   {StageRender, StageProduction, StageFulfillment},
	StageRender:       {StageProduction, StageFulfillment},
	StageProduction:   {StageQualityCheck, StageFulfillment},
	StageQualityCheck: {StageFulfillment, StageProduction}, // rework loop
	StageFulfillment:  {StageShipping},
	StageShipping:     {StageDelivery},
	StageDelivery:     {StageCompleted},
}

// CanTransition reports whether from -> to is a legal stage edge.
func CanTransition(from, to string) bool {
	if to == StageFailed || to == StageCancelled {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition when from -> to is illegal.
func ValidateTransition(from, to string) error {
	if !CanTransition(from, to) {
		return &ErrInvalidTransition{From: from, To: to}
	}
	return nil
}

// NextStages returns the legal successors of from, excluding the universal
// FAILED/CANCELLED escape edges.
func NextStages(from string) []string {
	next := transitions[from]
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether s ends stage progression.
func IsTerminal(s string) bool {
	return s == StageCompleted || s == StageFailed || s == StageCancelled
}
