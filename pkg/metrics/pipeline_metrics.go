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

package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics holds the order pipeline collectors. It is read-only with
// respect to orchestration: values flow in from event-bus subscriptions.
type PipelineMetrics struct {
	Transitions   *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	Completed     prometheus.Counter
	Cancelled     prometheus.Counter
	InProgress    prometheus.Gauge
	Stale         prometheus.Gauge
	StageDuration *prometheus.HistogramVec
}

// NewPipelineMetrics registers the pipeline collectors on registry.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "printforge",
				Name:      "pipeline_transitions_total",
				Help:      "Total number of pipeline stage transitions",
			},
			[]string{"from_stage", "to_stage", "triggered_by"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "printforge",
				Name:      "pipeline_stage_failures_total",
				Help:      "Total number of pipeline stage failures",
			},
			[]string{"stage", "retryable"},
		),
		Completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "printforge",
			Name:      "pipeline_completed_total",
			Help:      "Total number of completed pipelines",
		}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "printforge",
			Name:      "pipeline_cancelled_total",
			Help:      "Total number of cancelled pipelines",
		}),
		InProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "printforge",
			Name:      "pipeline_in_progress",
			Help:      "Number of pipelines currently in progress",
		}),
		Stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "printforge",
			Name:      "pipeline_stale",
			Help:      "Number of in-progress pipelines past the staleness threshold",
		}),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "printforge",
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 12), // 1s .. ~48d
			},
			[]string{"stage"},
		),
	}
	for _, c := range []prometheus.Collector{
		m.Transitions, m.Failures, m.Completed, m.Cancelled, m.InProgress, m.Stale, m.StageDuration,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
