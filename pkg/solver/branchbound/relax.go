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

package branchbound

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	simplexTolerance = 1e-10
	// rhsPerturbation loosens every row by a small distinct amount so that simplex
	// vertices are non-degenerate. Loosening keeps the relaxation admissible.
	rhsPerturbation = 1e-7
	// lpPivotFactor scales the per-relaxation column read budget with the tableau size.
	lpPivotFactor = 8
)

var errLPBudget = errors.New("lp relaxation exceeded its budget")

// relax returns an upper bound on the best objective reachable from the current
// node and, when the LP relaxation was solved, its optimal point over all variables.
// An infeasible node yields a bound of -Inf.
func (e *engine) relax() (float64, []float64) {
	free := make([]int, 0, e.n)
	for v, val := range e.fixed {
		if val == -1 {
			free = append(free, v)
		}
	}
	if len(free) == 0 {
		return e.fixedObjective(), nil
	}
	if e.lpDisabled || len(free) > e.maxLP || e.expired() {
		return e.trivialBound(), nil
	}

	bound, point, err := e.solveLP(free)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return math.Inf(-1), nil
	case errors.Is(err, errLPBudget):
		// The simplex stalled or the deadline passed; the rest of the search
		// uses the trivial bound.
		e.lpDisabled = true
		return e.trivialBound(), nil
	case err != nil:
		return e.trivialBound(), nil
	}
	return bound, point
}

// solveLP solves max obj·x over the free variables with x in [0,1] in gonum's
// standard form. Every active row gets a slack column and every free variable an
// upper-bound row x + u = 1. Rows whose right-hand side is negative are negated
// and carry an artificial column penalized in the objective, so the slack,
// artificial and u columns always form a feasible starting basis and the
// phase-one search is never needed. The penalized program is a relaxation of the
// node LP, so its optimum is still an upper bound.
func (e *engine) solveLP(free []int) (bound float64, point []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == errLPBudget {
				err = errLPBudget
				return
			}
			err = errors.New("lp relaxation panicked")
		}
	}()

	col := make(map[int]int, len(free))
	scale := 0.0
	for i, v := range free {
		col[v] = i
		scale = math.Max(scale, math.Abs(e.obj[v]))
	}
	if scale == 0 {
		// Nothing left to gain from the free variables.
		return e.fixedObjective(), nil, nil
	}

	type activeRow struct {
		coefs map[int]float64
		rhs   float64
	}
	var active []activeRow
	for i := range e.rows {
		r := &e.rows[i]
		ar := activeRow{rhs: r.rhs}
		for _, t := range r.terms {
			if j, ok := col[int(t.Var)]; ok {
				if ar.coefs == nil {
					ar.coefs = make(map[int]float64)
				}
				ar.coefs[j] += t.Coef
			} else if e.fixed[t.Var] == 1 {
				ar.rhs -= t.Coef
			}
		}
		if len(ar.coefs) > 0 {
			active = append(active, ar)
		}
	}

	// Columns: x (nf), slack (nr), u (nf), artificial (flipped).
	nf, nr := len(free), len(active)
	rows := nr + nf
	flipped := 0
	for i := range active {
		ar := &active[i]
		ar.rhs += rhsPerturbation * math.Max(1, math.Abs(ar.rhs)) * (1 + float64(i)/float64(rows))
		if ar.rhs < 0 {
			flipped++
		}
	}
	cols := nr + 2*nf + flipped
	A := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	c := make([]float64, cols)
	basis := make([]int, rows)

	penalty := 1.0
	for i, v := range free {
		c[i] = -e.obj[v] / scale
		penalty += math.Abs(c[i])
	}

	art := nr + 2*nf
	for i, ar := range active {
		sign := 1.0
		if ar.rhs < 0 {
			sign = -1
		}
		for j, coef := range ar.coefs {
			A.Set(i, j, sign*coef)
		}
		A.Set(i, nf+i, sign)
		b[i] = sign * ar.rhs
		basis[i] = nf + i
		if sign < 0 {
			A.Set(i, art, 1)
			c[art] = penalty
			basis[i] = art
			art++
		}
	}
	for j := 0; j < nf; j++ {
		A.Set(nr+j, j, 1)
		A.Set(nr+j, nf+nr+j, 1)
		b[nr+j] = 1 + rhsPerturbation*(1+float64(nr+j)/float64(rows))
		basis[nr+j] = nf + nr + j
	}

	guarded := &budgetMatrix{
		m:       A,
		limit:   3*cols + lpPivotFactor*(rows+cols),
		expired: e.expired,
	}
	optF, optX, err := lp.Simplex(c, guarded, b, simplexTolerance, basis)
	if err != nil {
		return 0, nil, err
	}

	point = make([]float64, e.n)
	for v, val := range e.fixed {
		if val == 1 {
			point[v] = 1
		}
	}
	for i, v := range free {
		point[v] = math.Min(1, math.Max(0, optX[i]))
	}
	return e.fixedObjective() - optF*scale, point, nil
}

// budgetMatrix counts column reads of the constraint matrix. gonum's simplex
// fetches the entering column on every pivot, so the read count bounds the pivots
// of a single relaxation; the matrix panics with errLPBudget once the budget or
// the search deadline is exhausted. It must not expose RawMatrix: every read has
// to go through At.
type budgetMatrix struct {
	m       *mat.Dense
	reads   int
	limit   int
	expired func() bool
}

func (g *budgetMatrix) Dims() (int, int) { return g.m.Dims() }

func (g *budgetMatrix) T() mat.Matrix { return mat.Transpose{Matrix: g} }

func (g *budgetMatrix) At(i, j int) float64 {
	if i == 0 {
		g.reads++
		if g.reads > g.limit || g.expired() {
			panic(errLPBudget)
		}
	}
	return g.m.At(i, j)
}
