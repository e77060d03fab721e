// Package optimizer runs one placement job end to end.
//
// The optimizer follows a pipeline pattern:
//
//	Parse → Build → (Export) → Solve → Extract → Verify → Write → Report
//	(dataset) (formulation) (mps) (backends) (output) (saturation) (output) (v1alpha1, metrics)
//
// Example usage:
//
//	cfg, err := config.Load(os.Args[1:])
//	if err != nil {
//	    return err
//	}
//	profiles, err := config.LoadSolverProfiles(cfg.ProfilesFile)
//	if err != nil {
//	    return err
//	}
//
//	opt := optimizer.NewOptimizer(cfg, profiles)
//	result, err := opt.Run(ctx)
//	if errors.Is(err, solver.ErrNoSolutionFound) {
//	    // nothing was written
//	}
//
// Run Flow:
//
//  1. Parse
//     - Read the instance file; malformed input fails with dataset.ErrMalformedInput
//
//  2. Build
//     - Validate the instance and build the MILP
//     - Optionally export the model in MPS format
//
//  3. Solve
//     - Resolve the solver settings (flags, profiles, env, file, defaults)
//     - Solve under the time limit and the caller's context
//
//  4. Extract and Verify
//     - Read the stored videos back from the solution
//     - Check capacity, id ranges, linking and mutual exclusion
//
//  5. Write
//     - Atomically write the solution file
//     - Write the optional run report and metrics textfile
//
// Error Handling:
//
// A run without a feasible assignment writes no solution file and returns
// solver.ErrNoSolutionFound. The run report and metrics textfile are still
// written when configured so that the outcome is recorded.
package optimizer
