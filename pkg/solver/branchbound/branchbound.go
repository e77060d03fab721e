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

// Package branchbound is an in-process exact backend for pure binary programs.
//
// The search is a depth-first branch-and-bound over the boolean variables:
//  1. Every node first checks row activity bounds: a row whose minimum attainable
//     activity already exceeds its right-hand side is infeasible.
//  2. The node bound is the LP relaxation (gonum simplex) over the free variables,
//     or the trivial bound (sum of positive objective coefficients) when the LP is
//     larger than Options.MaxLPVariables or fails numerically. Both are admissible.
//     Each relaxation has a pivot budget; once one exhausts it (a degenerate
//     simplex can cycle) the rest of the search uses the trivial bound.
//  3. Nodes whose bound cannot beat the incumbent by more than the relative gap are pruned.
//  4. Branching picks the most fractional LP variable (largest objective weight when
//     no LP point is available) and explores the nearer rounding first.
//  5. Every LP point is rounded down and checked for feasibility to tighten the
//     incumbent early; for packing models this rounding is always feasible.
//
// The deadline and context are checked before every node and inside every LP
// relaxation. When the search is cut off the incumbent is returned with
// StatusFeasible.
package branchbound

import (
	"context"
	"math"
	"time"

	"github.com/go-logr/logr"

	"github.com/llm-d/cache-placement-optimizer/internal/logging"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

// BackendName is the identifier reported by Name.
const BackendName = "branchbound"

const (
	// DefaultMaxLPVariables bounds the relaxation size solved at every node.
	DefaultMaxLPVariables = 400
	// DefaultTolerance is the integrality and feasibility tolerance.
	DefaultTolerance = 1e-6
)

// Options tunes the search.
type Options struct {
	// MaxLPVariables is the largest number of free variables for which the LP
	// relaxation is solved. Larger nodes use the trivial bound.
	MaxLPVariables int
	// Tolerance is the integrality and feasibility tolerance.
	Tolerance float64
}

// Solver implements solver.Solver with branch-and-bound.
type Solver struct {
	opts Options
}

// New creates a branch-and-bound solver. Zero option fields take defaults.
func New(opts Options) *Solver {
	if opts.MaxLPVariables <= 0 {
		opts.MaxLPVariables = DefaultMaxLPVariables
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	return &Solver{opts: opts}
}

// Name returns "branchbound".
func (s *Solver) Name() string { return BackendName }

// Solve runs the search until it completes, the time limit expires or ctx is done.
func (s *Solver) Solve(ctx context.Context, m *solver.Model, cfg solver.Config) (*solver.Result, error) {
	logger := logr.FromContextOrDiscard(ctx)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	e := newEngine(ctx, m, cfg, s.opts)
	if cfg.TimeLimit > 0 {
		e.useDeadline = true
		e.deadline = start.Add(cfg.TimeLimit)
	}

	logger.V(logging.DEBUG).Info("Starting branch-and-bound",
		"vars", m.NumVars(),
		"rows", len(e.rows),
		"gap", cfg.OptimalityGap,
		"timeLimit", cfg.TimeLimit)

	e.run()

	res := &solver.Result{
		Status:  solver.StatusNoSolution,
		Bound:   math.NaN(),
		RunTime: time.Since(start),
		Nodes:   e.nodes,
	}
	if !math.IsNaN(e.rootBound) {
		res.Bound = e.sign * e.rootBound
	}
	if e.found {
		res.Objective = e.sign * e.bestObj
		res.Values = e.best
		res.Status = solver.StatusFeasible
		if !e.stopped {
			res.Status = solver.StatusOptimal
			if cfg.OptimalityGap == 0 {
				res.Bound = res.Objective
			}
		}
	}

	logger.V(logging.DEBUG).Info("Branch-and-bound finished",
		"status", res.Status.String(),
		"objective", res.Objective,
		"bound", res.Bound,
		"nodes", res.Nodes,
		"runTime", res.RunTime)
	return res, nil
}
