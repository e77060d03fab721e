/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics provides Prometheus metrics for a placement run.
//
// A run is a batch job, so metrics live in a private registry and are written
// once at the end of the run in the text exposition format, suitable for the
// node-exporter textfile collector.
package metrics

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "cacheplan"

// Pipeline stages observed in the stage duration histogram.
const (
	StageParse   = "parse"
	StageBuild   = "build"
	StageExport  = "export"
	StageSolve   = "solve"
	StageExtract = "extract"
	StageWrite   = "write"
)

// Metrics holds all run metrics.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration    *prometheus.HistogramVec
	modelVariables   *prometheus.GaugeVec
	modelConstraints *prometheus.GaugeVec
	excludedRequests prometheus.Gauge
	objective        prometheus.Gauge
	bound            prometheus.Gauge
	solveStatus      *prometheus.GaugeVec
	runsTotal        *prometheus.CounterVec
	cacheUtilization *prometheus.GaugeVec
	scorePoints      prometheus.Gauge
}

// NewMetrics creates the run metrics in a fresh registry. constLabels are attached
// to every series.
func NewMetrics(constLabels prometheus.Labels) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "stage_duration_seconds",
				Help:        "Duration of each pipeline stage in seconds",
				Buckets:     []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
				ConstLabels: constLabels,
			},
			[]string{"stage"},
		),
		modelVariables: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "model_variables",
				Help:        "Number of boolean variables by kind (y = storage, x = credit)",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
		modelConstraints: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "model_constraints",
				Help:        "Number of constraints by family",
				ConstLabels: constLabels,
			},
			[]string{"family"},
		),
		excludedRequests: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "excluded_requests",
				Help:        "Request descriptions without any beneficial cache",
				ConstLabels: constLabels,
			},
		),
		objective: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "objective_value",
				Help:        "Total latency saved by the returned placement",
				ConstLabels: constLabels,
			},
		),
		bound: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "objective_bound",
				Help:        "Best proven bound on the objective, when known",
				ConstLabels: constLabels,
			},
		),
		solveStatus: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "solve_status",
				Help:        "Set to 1 for the status of the solve (optimal, feasible, no_solution)",
				ConstLabels: constLabels,
			},
			[]string{"backend", "status"},
		),
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "runs_total",
				Help:        "Completed runs by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		cacheUtilization: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "cache_utilization_ratio",
				Help:        "Fraction of the cache capacity used by the placement",
				ConstLabels: constLabels,
			},
			[]string{"cache"},
		),
		scorePoints: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "score_points",
				Help:        "Contest score of the placement",
				ConstLabels: constLabels,
			},
		),
	}
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records the duration of a pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordModel records the size of the built model.
func (m *Metrics) RecordModel(yVars, xVars, capacity, link, oneCache, excluded int) {
	m.modelVariables.WithLabelValues("y").Set(float64(yVars))
	m.modelVariables.WithLabelValues("x").Set(float64(xVars))
	m.modelConstraints.WithLabelValues("capacity").Set(float64(capacity))
	m.modelConstraints.WithLabelValues("link").Set(float64(link))
	m.modelConstraints.WithLabelValues("one_cache").Set(float64(oneCache))
	m.excludedRequests.Set(float64(excluded))
}

// RecordSolve records the outcome of the solve. A NaN bound is not recorded.
func (m *Metrics) RecordSolve(backend, status string, objective, bound float64) {
	m.solveStatus.WithLabelValues(backend, status).Set(1)
	m.objective.Set(objective)
	if !math.IsNaN(bound) {
		m.bound.Set(bound)
	}
}

// RecordUtilization records the utilization ratio of one cache.
func (m *Metrics) RecordUtilization(cache int, ratio float64) {
	m.cacheUtilization.WithLabelValues(strconv.Itoa(cache)).Set(ratio)
}

// RecordScore records the contest score of the placement.
func (m *Metrics) RecordScore(points int64) {
	m.scorePoints.Set(float64(points))
}

// RecordRun counts a finished run with the given outcome (success, no_solution, error).
func (m *Metrics) RecordRun(outcome string) {
	m.runsTotal.WithLabelValues(outcome).Inc()
}

// Write renders every metric in the text exposition format.
func (m *Metrics) Write(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile atomically writes every metric to path for the textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
