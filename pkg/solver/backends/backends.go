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

// Package backends selects a solver.Solver implementation by name.
package backends

import (
	"fmt"

	"github.com/llm-d/cache-placement-optimizer/pkg/config"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver/branchbound"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver/highs"
)

// New is a factory that creates the backend named by the spec.
// An empty backend selects config.DefaultBackend.
func New(spec config.SolverSpec) (solver.Solver, error) {
	backend := spec.Backend
	if backend == "" {
		backend = config.DefaultBackend
	}
	switch backend {
	case config.BackendHiGHS:
		return highs.New(), nil
	case config.BackendBranchBound:
		return branchbound.New(branchbound.Options{}), nil
	default:
		return nil, fmt.Errorf("%w: unsupported backend %q", solver.ErrSolverUnavailable, backend)
	}
}
