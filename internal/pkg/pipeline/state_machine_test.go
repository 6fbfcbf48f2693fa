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

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StageCreated, StageValidation, true},
		{StageValidation, StageRender, true},
		{StageValidation, StageProduction, true},
		{StageValidation, StageFulfillment, true},
		{StageValidation, StageDelivery, false},
		{StageValidation, StageShipping, false},
		{StageRender, StageProduction, true},
		{StageRender, StageValidation, false},
		{StageProduction, StageQualityCheck, true},
		{StageQualityCheck, StageProduction, true},
		{StageQualityCheck, StageShipping, false},
		{StageFulfillment, StageShipping, true},
		{StageShipping, StageDelivery, true},
		{StageDelivery, StageCompleted, true},
		{StageCompleted, StageValidation, false},
		// universal escape edges
		{StageValidation, StageFailed, true},
		{StageDelivery, StageCancelled, true},
		{StageCompleted, StageFailed, true},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	if err := ValidateTransition(StageFulfillment, StageShipping); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := ValidateTransition(StageValidation, StageDelivery)
	if err == nil {
		t.Fatal("expected error for VALIDATION -> DELIVERY")
	}
	var invalid *ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidTransition, got %T", err)
	}
	if invalid.From != StageValidation || invalid.To != StageDelivery {
		t.Fatalf("unexpected edge in error: %s -> %s", invalid.From, invalid.To)
	}
}

func TestNextStages(t *testing.T) {
	next := NextStages(StageValidation)
	if len(next) != 3 {
		t.Fatalf("NextStages(VALIDATION) = %v, want 3 successors", next)
	}
	if len(NextStages(StageCompleted)) != 0 {
		t.Fatal("terminal stage should have no successors")
	}

	// returned slice is a copy
	next[0] = "MUTATED"
	if NextStages(StageValidation)[0] == "MUTATED" {
		t.Fatal("NextStages leaked internal state")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{StageCompleted, StageFailed, StageCancelled} {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = false, want true", s)
		}
	}
	for _, s := range []string{StageCreated, StageValidation, StageDelivery} {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = true, want false", s)
		}
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		idx   int
		total int
		want  int
	}{
		{0, 6, 17},
		{1, 6, 33},
		{5, 6, 100},
		{0, 4, 25},
		{2, 7, 43},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := Progress(tt.idx, tt.total); got != tt.want {
			t.Errorf("Progress(%d, %d) = %d, want %d", tt.idx, tt.total, got, tt.want)
		}
	}
}

func TestEstimateCompletion(t *testing.T) {
	est := NewEstimates(map[string]float64{StageProduction: 24})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got := est.EstimateCompletion([]string{StageValidation, StageProduction}, now)
	want := now.Add(25 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("EstimateCompletion = %v, want %v", got, want)
	}

	// unknown stages contribute nothing
	got = est.EstimateCompletion([]string{"UNKNOWN"}, now)
	if !got.Equal(now) {
		t.Fatalf("unknown stage added time: %v", got)
	}
}
