// Package config provides the solver configuration shared by the optimizer and its backends.
//
// Configuration Types:
//
//   - SolverSpec: backend selection and termination parameters (relative optimality
//     gap, wall-clock time limit)
//
// SolverSpec values come from the command-line and environment loader in
// internal/config. Optional fields are pointers so that an unset value can be told
// apart from an explicit zero; Default fills every unset field.
//
// Example usage:
//
//	spec := config.SolverSpec{Backend: config.BackendHiGHS, OptimalityGap: ptr.To(0.01)}
//	spec.Default()
//	if errs := spec.Validate(field.NewPath("solver")); len(errs) > 0 {
//	    return errs.ToAggregate()
//	}
//	cfg := spec.SolverConfig()
//
// Configuration Validation:
//
//   - OptimalityGap must be in [0, 1)
//   - TimeLimit must be non-negative (zero disables the cutoff)
//   - Backend must name a registered backend
package config
