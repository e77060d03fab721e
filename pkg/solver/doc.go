// Package solver defines the MILP capability the cache-placement optimizer relies on.
//
// The solver package keeps the model builder independent of any particular MILP engine.
// A Model is assembled through a narrow API and handed to a Solver backend together
// with the termination configuration.
//
// Key Components:
//
//   - Model: boolean variable declarations, linear constraints and a linear objective
//   - Solver: backend interface (Name + Solve)
//   - Config: termination parameters (relative optimality gap, wall-clock time limit)
//   - Result: status, objective value, best bound and variable values
//
// Backends:
//
//   - branchbound: in-process depth-first branch-and-bound with LP relaxation bounds,
//     suited to small instances and tests
//   - highs: the HiGHS MILP solver reached through the nextmv SDK
//
// The backends package maps a configured backend name to an implementation.
//
// Example usage:
//
//	m := solver.NewModel("streaming_videos")
//	x := m.NewBool("x")
//	y := m.NewBool("y")
//	m.AddConstraint("Link", solver.LessOrEqual, 0, solver.Term{Coef: 1, Var: x}, solver.Term{Coef: -1, Var: y})
//	m.SetObjective(solver.Maximize, []solver.Term{{Coef: 5, Var: x}})
//
//	s, err := backends.New(config.SolverSpec{Backend: config.BackendBranchBound})
//	if err != nil {
//	    return err
//	}
//	res, err := s.Solve(ctx, m, solver.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	if res.Status == solver.StatusNoSolution {
//	    return solver.ErrNoSolutionFound
//	}
//
// A backend never alters the model's semantics. Time-limit cutoffs are not errors:
// the incumbent is returned with StatusFeasible.
package solver
