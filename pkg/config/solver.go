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

package config

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"

	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

// Backend names a MILP solver backend.
type Backend string

const (
	// BackendHiGHS solves through the HiGHS engine reached via the nextmv SDK.
	BackendHiGHS Backend = "highs"
	// BackendBranchBound is the in-process branch-and-bound.
	BackendBranchBound Backend = "branchbound"

	// DefaultBackend is used when no backend is configured.
	DefaultBackend = BackendHiGHS
)

// SupportedBackends lists every backend name accepted by Validate.
var SupportedBackends = []Backend{BackendHiGHS, BackendBranchBound}

// SolverSpec selects a backend and its termination parameters.
type SolverSpec struct {
	Backend       Backend        `json:"backend,omitempty" yaml:"backend,omitempty"`
	OptimalityGap *float64       `json:"optimalityGap,omitempty" yaml:"optimalityGap,omitempty"`
	TimeLimit     *time.Duration `json:"timeLimit,omitempty" yaml:"timeLimit,omitempty"`
}

// Default fills every unset field with its default value.
func (s *SolverSpec) Default() {
	if s.Backend == "" {
		s.Backend = DefaultBackend
	}
	if s.OptimalityGap == nil {
		s.OptimalityGap = ptr.To(solver.DefaultOptimalityGap)
	}
	if s.TimeLimit == nil {
		s.TimeLimit = ptr.To(solver.DefaultTimeLimit)
	}
}

// Validate checks the spec. Unset optional fields are valid.
func (s *SolverSpec) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if s.Backend != "" && !isSupported(s.Backend) {
		errs = append(errs, field.NotSupported(path.Child("backend"), s.Backend, SupportedBackends))
	}
	if g := s.OptimalityGap; g != nil && (*g < 0 || *g >= 1) {
		errs = append(errs, field.Invalid(path.Child("optimalityGap"), *g, "must be in [0, 1)"))
	}
	if l := s.TimeLimit; l != nil && *l < 0 {
		errs = append(errs, field.Invalid(path.Child("timeLimit"), l.String(), "must be non-negative"))
	}
	return errs
}

// SolverConfig converts the spec into backend termination parameters.
// Unset fields take their defaults.
func (s *SolverSpec) SolverConfig() solver.Config {
	return solver.Config{
		OptimalityGap: ptr.Deref(s.OptimalityGap, solver.DefaultOptimalityGap),
		TimeLimit:     ptr.Deref(s.TimeLimit, solver.DefaultTimeLimit),
	}
}

// String renders the effective configuration for logs.
func (s *SolverSpec) String() string {
	cfg := s.SolverConfig()
	return fmt.Sprintf("backend=%s gap=%g timeLimit=%s", s.Backend, cfg.OptimalityGap, cfg.TimeLimit)
}

func isSupported(b Backend) bool {
	for _, s := range SupportedBackends {
		if s == b {
			return true
		}
	}
	return false
}
