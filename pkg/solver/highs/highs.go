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

// Package highs adapts the solver capability to the HiGHS MILP engine through the
// nextmv SDK mip package.
//
// Variables are created in VarID order, so the adapter keeps a slice of mip.Bool
// indexed by VarID and reads solution values back in the same order. Provider
// initialization failures are reported as solver.ErrSolverUnavailable.
//
// The SDK loads HiGHS from a Go plugin and terminates the process when the plugin
// file is missing, so Solve looks the file up itself before touching the SDK.
package highs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"github.com/nextmv-io/sdk"
	"github.com/nextmv-io/sdk/mip"

	"github.com/llm-d/cache-placement-optimizer/internal/logging"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

// ErrPluginNotFound is wrapped when no SDK plugin file exists in the search path.
var ErrPluginNotFound = errors.New("nextmv plugin not found")

const (
	// BackendName is the identifier reported by Name.
	BackendName = "highs"
	// Provider is the nextmv solver provider.
	Provider = mip.Highs

	// LibraryPathEnv overrides the directory searched for the SDK plugin.
	LibraryPathEnv = "NEXTMV_LIBRARY_PATH"
)

// Solver implements solver.Solver on top of HiGHS.
type Solver struct{}

// New returns a HiGHS-backed solver.
func New() *Solver { return &Solver{} }

// Name returns "highs".
func (s *Solver) Name() string { return BackendName }

// Solve translates the model, runs HiGHS under the configured gap and time limit
// and maps the solution back to VarID order. A deadline on ctx shortens the time limit.
func (s *Solver) Solve(ctx context.Context, m *solver.Model, cfg solver.Config) (res *solver.Result, err error) {
	logger := logr.FromContextOrDiscard(ctx)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := PluginPath(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", solver.ErrSolverUnavailable, Provider, err)
	}

	// plugin.Open and symbol lookup failures surface as panics from the SDK.
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %s: %v", solver.ErrSolverUnavailable, Provider, r)
		}
	}()

	mm, vars := translate(m)

	sv, err := mip.NewSolver(Provider, mm)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", solver.ErrSolverUnavailable, Provider, err)
	}

	opts := solveOptions(ctx, cfg)
	logger.V(logging.DEBUG).Info("Starting HiGHS",
		"vars", m.NumVars(),
		"constraints", m.NumConstraints(),
		"gap", cfg.OptimalityGap,
		"timeLimit", opts.Duration)

	start := time.Now()
	solution, err := sv.Solve(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: solve failed: %v", solver.ErrSolverUnavailable, err)
	}

	res = toResult(solution, vars)
	if res.RunTime == 0 {
		res.RunTime = time.Since(start)
	}
	logger.V(logging.DEBUG).Info("HiGHS finished",
		"status", res.Status.String(),
		"objective", res.Objective,
		"runTime", res.RunTime)
	return res, nil
}

// solveOptions maps the solver configuration onto the SDK options. A zero
// duration means no limit.
func solveOptions(ctx context.Context, cfg solver.Config) mip.SolveOptions {
	return mip.SolveOptions{
		Duration:  effectiveTimeLimit(ctx, cfg.TimeLimit),
		Verbosity: mip.Off,
		MIP: mip.MIPOptions{
			Gap: mip.GapOptions{Relative: cfg.OptimalityGap},
		},
	}
}

// PluginPath returns the first existing SDK plugin file, searched in the same
// order the SDK uses: the library path (NEXTMV_LIBRARY_PATH or ~/.nextmv/lib),
// the working directory and the executable's directory.
func PluginPath() (string, error) {
	paths := pluginPaths()
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %q", ErrPluginNotFound, paths)
}

func pluginPaths() []string {
	var dirs []string
	if lib := os.Getenv(LibraryPathEnv); lib != "" {
		dirs = append(dirs, lib)
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".nextmv", "lib"))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	var paths []string
	for _, dir := range dirs {
		// The SDK picks the -debug build when compiled with the debug tag.
		for _, suffix := range []string{"", "-debug"} {
			paths = append(paths, filepath.Join(dir, pluginFile(suffix)))
		}
	}
	return paths
}

func pluginFile(suffix string) string {
	return fmt.Sprintf("nextmv-sdk-%s-%s-%s-%s%s.so",
		sdk.VERSION, runtime.Version(), runtime.GOOS, runtime.GOARCH, suffix)
}

// translate builds the nextmv model. vars[i] is the variable for VarID i.
func translate(m *solver.Model) (mip.Model, []mip.Bool) {
	mm := mip.NewModel()

	vars := make([]mip.Bool, m.NumVars())
	for i := range vars {
		vars[i] = mm.NewBool()
	}

	for _, c := range m.Constraints() {
		con := mm.NewConstraint(toSense(c.Sense), c.RHS)
		for _, t := range c.Terms {
			con.NewTerm(t.Coef, vars[t.Var])
		}
	}

	sense, terms := m.Objective()
	if sense == solver.Minimize {
		mm.Objective().SetMinimize()
	} else {
		mm.Objective().SetMaximize()
	}
	for _, t := range terms {
		mm.Objective().NewTerm(t.Coef, vars[t.Var])
	}
	return mm, vars
}

func toSense(s solver.Sense) mip.Sense {
	switch s {
	case solver.GreaterOrEqual:
		return mip.GreaterThanOrEqual
	case solver.Equal:
		return mip.Equal
	default:
		return mip.LessThanOrEqual
	}
}

func toResult(solution mip.Solution, vars []mip.Bool) *solver.Result {
	res := &solver.Result{Status: solver.StatusNoSolution, Bound: math.NaN()}
	if solution == nil {
		return res
	}
	res.RunTime = solution.RunTime()
	if !solution.HasValues() {
		return res
	}

	res.Status = solver.StatusFeasible
	if solution.IsOptimal() {
		res.Status = solver.StatusOptimal
	}
	res.Objective = solution.ObjectiveValue()
	res.Values = make([]float64, len(vars))
	for i, v := range vars {
		res.Values[i] = solution.Value(v)
	}
	return res
}

// effectiveTimeLimit returns the smaller of limit and the time left before the
// context deadline. Zero means unlimited.
func effectiveTimeLimit(ctx context.Context, limit time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return limit
	}
	left := time.Until(deadline)
	if left <= 0 {
		left = time.Millisecond
	}
	if limit == 0 || left < limit {
		return left
	}
	return limit
}
