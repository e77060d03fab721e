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

package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/llm-d/cache-placement-optimizer/api/v1alpha1"
	"github.com/llm-d/cache-placement-optimizer/internal/config"
	"github.com/llm-d/cache-placement-optimizer/internal/dataset"
	"github.com/llm-d/cache-placement-optimizer/internal/formulation"
	"github.com/llm-d/cache-placement-optimizer/internal/logging"
	"github.com/llm-d/cache-placement-optimizer/internal/metrics"
	"github.com/llm-d/cache-placement-optimizer/internal/output"
	"github.com/llm-d/cache-placement-optimizer/internal/saturation"
	"github.com/llm-d/cache-placement-optimizer/pkg/core"
	pkgconfig "github.com/llm-d/cache-placement-optimizer/pkg/config"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver/backends"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver/mps"
)

// Run outcomes recorded in the runs_total counter.
const (
	OutcomeSuccess    = "success"
	OutcomeNoSolution = "no_solution"
	OutcomeError      = "error"
)

// ErrInvalidInput wraps every failure to read or parse the instance file.
var ErrInvalidInput = errors.New("invalid instance input")

// SolverFactory creates the backend selected by spec.
type SolverFactory func(spec pkgconfig.SolverSpec) (solver.Solver, error)

// Optimizer runs the placement pipeline for one configuration.
type Optimizer struct {
	cfg       *config.Config
	profiles  config.SolverProfileData
	newSolver SolverFactory
	metrics   *metrics.Metrics
	runID     string
	now       func() time.Time
}

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithSolverFactory replaces backends.New.
func WithSolverFactory(f SolverFactory) Option {
	return func(o *Optimizer) { o.newSolver = f }
}

// WithRunID fixes the run id instead of generating a random one.
func WithRunID(id string) Option {
	return func(o *Optimizer) { o.runID = id }
}

// NewOptimizer creates an optimizer for cfg. profiles may be nil.
func NewOptimizer(cfg *config.Config, profiles config.SolverProfileData, opts ...Option) *Optimizer {
	o := &Optimizer{
		cfg:       cfg,
		profiles:  profiles,
		newSolver: backends.New,
		runID:     uuid.NewString(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.metrics = metrics.NewMetrics(prometheus.Labels{"dataset": cfg.Dataset()})
	return o
}

// RunID returns the id attached to logs, metrics and the report of this run.
func (o *Optimizer) RunID() string { return o.runID }

// Metrics returns the run metrics.
func (o *Optimizer) Metrics() *metrics.Metrics { return o.metrics }

// Result is everything a run produced. Fields are filled up to the stage the run reached.
type Result struct {
	RunID       string
	Spec        pkgconfig.SolverSpec
	Instance    *core.Instance
	Formulation *formulation.Formulation
	Solve       *solver.Result
	Placement   *core.Placement
	Utilization *saturation.Report
	Score       *saturation.Scoring
	Report      *v1alpha1.PlacementReport
}

// Run executes the pipeline. It returns solver.ErrNoSolutionFound, with a
// partial result, when the solver found no feasible assignment.
func (o *Optimizer) Run(ctx context.Context) (res *Result, err error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("runID", o.runID, "dataset", o.cfg.Dataset())
	ctx = logr.NewContext(ctx, logger)

	res = &Result{RunID: o.runID}
	defer func() {
		outcome := OutcomeSuccess
		switch {
		case errors.Is(err, solver.ErrNoSolutionFound):
			outcome = OutcomeNoSolution
		case err != nil:
			outcome = OutcomeError
		}
		o.metrics.RecordRun(outcome)
		if o.cfg.MetricsFile != "" {
			if werr := o.metrics.WriteTextfile(o.cfg.MetricsFile); werr != nil {
				logger.Error(werr, "Failed to write metrics", "path", o.cfg.MetricsFile)
			}
		}
	}()

	res.Spec, err = o.cfg.SolverSpec(o.profiles)
	if err != nil {
		return res, fmt.Errorf("invalid solver configuration: %w", err)
	}
	backend, err := o.newSolver(res.Spec)
	if err != nil {
		return res, err
	}
	logger.Info("Starting placement run", "input", o.cfg.Input, "solver", res.Spec.String())

	start := time.Now()
	res.Instance, err = dataset.ParseFile(o.cfg.Input)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	o.metrics.ObserveStage(metrics.StageParse, time.Since(start))
	logger.V(logging.DEBUG).Info("Parsed instance", "params", res.Instance.Params.String())

	start = time.Now()
	res.Formulation, err = formulation.Build(res.Instance)
	if err != nil {
		return res, err
	}
	o.metrics.ObserveStage(metrics.StageBuild, time.Since(start))
	stats := res.Formulation.Stats()
	o.metrics.RecordModel(stats.YVars, stats.XVars, stats.CapacityConstraints,
		stats.LinkConstraints, stats.OneCacheConstraints, stats.ExcludedRequests)
	logger.V(logging.DEBUG).Info("Built model",
		"model", res.Formulation.Model.String(),
		"excludedRequests", stats.ExcludedRequests)

	if o.cfg.MPSFile != "" {
		start = time.Now()
		if err = mps.WriteFile(o.cfg.MPSFile, res.Formulation.Model); err != nil {
			return res, err
		}
		o.metrics.ObserveStage(metrics.StageExport, time.Since(start))
		logger.V(logging.DEBUG).Info("Exported model", "path", o.cfg.MPSFile)
	}

	start = time.Now()
	res.Solve, err = backend.Solve(ctx, res.Formulation.Model, res.Spec.SolverConfig())
	if err != nil {
		return res, fmt.Errorf("solve failed: %w", err)
	}
	o.metrics.ObserveStage(metrics.StageSolve, time.Since(start))
	o.metrics.RecordSolve(backend.Name(), res.Solve.Status.String(), res.Solve.Objective, res.Solve.Bound)
	logger.Info("Solve finished",
		"backend", backend.Name(),
		"status", res.Solve.Status.String(),
		"objective", res.Solve.Objective,
		"runTime", res.Solve.RunTime)

	if !res.Solve.HasSolution() {
		logger.Info("No feasible placement found, nothing written", "output", o.cfg.Output)
		res.Report = o.report(res)
		if rerr := o.writeReport(res.Report); rerr != nil {
			return res, rerr
		}
		return res, solver.ErrNoSolutionFound
	}

	start = time.Now()
	res.Placement, err = output.Extract(res.Formulation, res.Solve)
	if err != nil {
		return res, err
	}
	if err = saturation.Verify(res.Instance, res.Placement); err != nil {
		return res, fmt.Errorf("placement failed verification: %w", err)
	}
	if err = saturation.VerifyCredits(res.Placement, res.Formulation.Credited(res.Solve)); err != nil {
		return res, fmt.Errorf("placement failed verification: %w", err)
	}
	o.metrics.ObserveStage(metrics.StageExtract, time.Since(start))

	start = time.Now()
	if err = output.WriteFile(o.cfg.Output, res.Placement); err != nil {
		return res, err
	}
	o.metrics.ObserveStage(metrics.StageWrite, time.Since(start))

	utilization := saturation.Analyze(res.Instance, res.Placement)
	score := saturation.Score(res.Instance, res.Placement)
	res.Utilization, res.Score = &utilization, &score
	for _, u := range utilization.Caches {
		o.metrics.RecordUtilization(u.Cache, u.Utilization)
	}
	o.metrics.RecordScore(score.Points)

	logger.Info("Placement written",
		"output", o.cfg.Output,
		"usedCaches", utilization.UsedCaches,
		"storedVideos", utilization.StoredVideos,
		"provenOptimal", res.Placement.ProvenOptimal,
		"score", score.Points)

	res.Report = o.report(res)
	if err = o.writeReport(res.Report); err != nil {
		return res, err
	}
	return res, nil
}
