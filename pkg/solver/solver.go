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

package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// DefaultOptimalityGap terminates the search once the incumbent is within 0.5% of the bound.
	DefaultOptimalityGap = 0.005
	// DefaultTimeLimit is the hard wall-clock cutoff for a single solve.
	DefaultTimeLimit = 600 * time.Second
)

var (
	// ErrNoSolutionFound is returned when no feasible assignment was found before the cutoff.
	ErrNoSolutionFound = errors.New("no feasible solution found")
	// ErrSolverUnavailable is returned when a backend cannot be reached or initialized.
	// It is fatal and never retried.
	ErrSolverUnavailable = errors.New("solver unavailable")
)

// Solver is the capability interface implemented by every MILP backend.
type Solver interface {
	// Name returns the backend identifier for logging/metrics.
	Name() string

	// Solve optimizes the model under the given termination configuration.
	// A time-limited, non-proven solution is a successful result with StatusFeasible.
	Solve(ctx context.Context, m *Model, cfg Config) (*Result, error)
}

// Config holds the termination parameters handed to a backend.
type Config struct {
	// OptimalityGap stops the search when the incumbent is within this fraction of the best bound.
	OptimalityGap float64
	// TimeLimit is the hard wall-clock cutoff. Zero means no limit.
	TimeLimit time.Duration
}

// DefaultConfig returns the default termination configuration.
func DefaultConfig() Config {
	return Config{
		OptimalityGap: DefaultOptimalityGap,
		TimeLimit:     DefaultTimeLimit,
	}
}

// Validate checks for invalid configuration values.
func (c Config) Validate() error {
	if c.OptimalityGap < 0 || c.OptimalityGap >= 1 || math.IsNaN(c.OptimalityGap) {
		return fmt.Errorf("optimality gap must be in [0, 1), got %g", c.OptimalityGap)
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("time limit must be >= 0, got %s", c.TimeLimit)
	}
	return nil
}

// Status is the outcome of a solve.
type Status int

const (
	// StatusNoSolution means no feasible assignment was found before the cutoff.
	StatusNoSolution Status = iota
	// StatusFeasible means a feasible assignment was found but optimality was not proven.
	StatusFeasible
	// StatusOptimal means the assignment is optimal within the configured gap.
	StatusOptimal
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusNoSolution:
		return "no_solution"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is what a backend returns for a solve.
type Result struct {
	// Status is the solve outcome.
	Status Status
	// Objective is the objective value of the incumbent.
	Objective float64
	// Bound is the best proven bound on the objective, NaN when unknown.
	Bound float64
	// Values holds the incumbent value of every variable, indexed by VarID.
	Values []float64
	// RunTime is the wall-clock duration of the solve.
	RunTime time.Duration
	// Nodes is the number of search nodes explored, when the backend reports it.
	Nodes int64
}

// ProvenOptimal reports whether the incumbent was proven optimal within the gap.
func (r *Result) ProvenOptimal() bool {
	return r != nil && r.Status == StatusOptimal
}

// HasSolution reports whether the result carries a feasible assignment.
func (r *Result) HasSolution() bool {
	return r != nil && r.Status != StatusNoSolution
}

// Value returns the value of v in the incumbent, or 0 without a solution.
func (r *Result) Value(v VarID) float64 {
	if !r.HasSolution() || int(v) >= len(r.Values) || v < 0 {
		return 0
	}
	return r.Values[v]
}

// Gap returns the relative distance between the incumbent and the bound,
// NaN when the bound is unknown.
func (r *Result) Gap() float64 {
	if !r.HasSolution() || math.IsNaN(r.Bound) {
		return math.NaN()
	}
	denom := math.Max(math.Abs(r.Objective), 1e-10)
	return math.Abs(r.Bound-r.Objective) / denom
}

// Err returns ErrNoSolutionFound when the result carries no feasible assignment.
func (r *Result) Err() error {
	if !r.HasSolution() {
		return ErrNoSolutionFound
	}
	return nil
}
