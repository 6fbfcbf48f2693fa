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

import "time"

// StageInfo describes a known work stage.
type StageInfo struct {
	Name          string
	DisplayName   string
	EstimateHours float64
}

// Catalog lists the work stages in canonical order. Terminal markers are
// excluded.
var Catalog = []StageInfo{
	{Name: StageValidation, DisplayName: "Order Validation", EstimateHours: 1},
	{Name: StageRender, DisplayName: "Design Rendering", EstimateHours: 2},
	{Name: StageProduction, DisplayName: "Production", EstimateHours: 48},
	{Name: StageQualityCheck, DisplayName: "Quality Check", EstimateHours: 4},
	{Name: StageFulfillment, DisplayName: "Fulfillment", EstimateHours: 24},
	{Name: StageShipping, DisplayName: "Shipping", EstimateHours: 72},
	{Name: StageDelivery, DisplayName: "Delivery", EstimateHours: 24},
}

// DisplayName returns the human readable name for a stage, falling back to
// the raw stage name.
func DisplayName(stage string) string {
	for _, info := range Catalog {
		if info.Name == stage {
			return info.DisplayName
		}
	}
	return stage
}

// Estimates maps stage names to expected duration in hours. Construct via
// NewEstimates so config overrides merge over catalog defaults.
type Estimates map[string]float64

// NewEstimates builds the estimate table from the catalog, then applies
// overrides for stages present in the override map.
func NewEstimates(overrides map[string]float64) Estimates {
	est := make(Estimates, len(Catalog))
	for _, info := range Catalog {
		est[info.Name] = info.EstimateHours
	}
	for stage, hours := range overrides {
		if hours > 0 {
			est[stage] = hours
		}
	}
	return est
}

// EstimateCompletion sums the estimated duration of the given stages from
// now. Unknown stages contribute nothing.
func (e Estimates) EstimateCompletion(stages []string, now time.Time) time.Time {
	var total float64
	for _, stage := range stages {
		total += e[stage]
	}
	return now.Add(time.Duration(total * float64(time.Hour)))
}

// Progress returns the percentage for having reached the stage at index idx
// in a list of total stages, rounded to the nearest integer.
func Progress(idx, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(100*(idx+1))/float64(total) + 0.5)
}
