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
	"context"
	"math"
	"time"

	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

// row is a constraint normalized to sum(terms) <= rhs.
type row struct {
	terms []solver.Term
	rhs   float64
}

// frame is one branching decision on the explicit DFS stack.
type frame struct {
	v     int
	first float64
	tried int
}

// engine holds all search data. The objective is always maximized internally;
// sign maps it back to the model's sense.
type engine struct {
	ctx   context.Context
	n     int
	sign  float64
	obj   []float64
	rows  []row
	gap   float64
	tol   float64
	maxLP int

	useDeadline bool
	deadline    time.Time
	stopped     bool
	lpDisabled  bool

	// fixed[v] is -1 for a free variable, otherwise its 0/1 value.
	fixed []int8
	stack []frame

	best      []float64
	bestObj   float64
	found     bool
	rootBound float64
	nodes     int64
}

func newEngine(ctx context.Context, m *solver.Model, cfg solver.Config, opts Options) *engine {
	e := &engine{
		ctx:       ctx,
		n:         m.NumVars(),
		sign:      1,
		gap:       cfg.OptimalityGap,
		tol:       opts.Tolerance,
		maxLP:     opts.MaxLPVariables,
		rootBound: math.NaN(),
	}

	sense, terms := m.Objective()
	if sense == solver.Minimize {
		e.sign = -1
	}
	e.obj = make([]float64, e.n)
	for _, t := range terms {
		e.obj[t.Var] += e.sign * t.Coef
	}

	for _, c := range m.Constraints() {
		switch c.Sense {
		case solver.LessOrEqual:
			e.rows = append(e.rows, row{terms: c.Terms, rhs: c.RHS})
		case solver.GreaterOrEqual:
			e.rows = append(e.rows, negated(c))
		case solver.Equal:
			e.rows = append(e.rows, row{terms: c.Terms, rhs: c.RHS}, negated(c))
		}
	}

	e.fixed = make([]int8, e.n)
	for i := range e.fixed {
		e.fixed[i] = -1
	}
	return e
}

func negated(c solver.Constraint) row {
	terms := make([]solver.Term, len(c.Terms))
	for i, t := range c.Terms {
		terms[i] = solver.Term{Coef: -t.Coef, Var: t.Var}
	}
	return row{terms: terms, rhs: -c.RHS}
}

// expired reports whether the context is done or the time limit has passed.
func (e *engine) expired() bool {
	if e.ctx.Err() != nil {
		return true
	}
	return e.useDeadline && !time.Now().Before(e.deadline)
}

// run explores the tree with an explicit stack so depth is not bounded by the goroutine stack.
func (e *engine) run() {
	e.tryIncumbent(make([]float64, e.n))

	for {
		// The root is always evaluated so a bound is reported; its relaxation
		// falls back to the trivial bound once the search has expired.
		if e.nodes > 0 && e.expired() {
			e.stopped = true
			return
		}
		if v, first, ok := e.evaluate(); ok {
			e.stack = append(e.stack, frame{v: v, first: first, tried: 1})
			e.fixed[v] = int8(first)
			continue
		}
		if !e.backtrack() {
			return
		}
	}
}

// backtrack moves to the next unexplored sibling. It returns false when the tree is exhausted.
func (e *engine) backtrack() bool {
	for len(e.stack) > 0 {
		top := &e.stack[len(e.stack)-1]
		if top.tried == 1 {
			top.tried = 2
			e.fixed[top.v] = int8(1 - top.first)
			return true
		}
		e.fixed[top.v] = -1
		e.stack = e.stack[:len(e.stack)-1]
	}
	return false
}

// evaluate processes the current node. It returns the branching variable and the
// value to explore first, or ok=false when the node is pruned or solved.
func (e *engine) evaluate() (v int, first float64, ok bool) {
	e.nodes++

	if !e.rowsAttainable() {
		return 0, 0, false
	}

	bound, point := e.relax()
	if math.IsInf(bound, -1) {
		return 0, 0, false
	}
	if e.nodes == 1 {
		e.rootBound = bound
	}
	if e.found && !e.worthExploring(bound) {
		return 0, 0, false
	}

	if point != nil {
		e.tryIncumbent(roundDown(point, e.tol))
		v = e.mostFractional(point)
		if v < 0 {
			// Integral LP optimum: the node is solved by its own relaxation.
			e.tryIncumbent(roundNearest(point))
			if e.feasible(roundNearest(point)) {
				return 0, 0, false
			}
			v = e.heaviestFree()
		}
	} else {
		v = e.heaviestFree()
	}

	if v < 0 {
		e.tryIncumbent(e.assignment())
		return 0, 0, false
	}

	switch {
	case point != nil && point[v] >= 0.5:
		first = 1
	case point == nil && e.obj[v] > 0:
		first = 1
	}
	return v, first, true
}

// worthExploring reports whether a node with the given bound can improve the
// incumbent by more than the configured relative gap.
func (e *engine) worthExploring(bound float64) bool {
	slack := 1e-7 * math.Max(1, math.Abs(bound))
	margin := e.gap * math.Abs(e.bestObj)
	return bound+slack > e.bestObj+math.Max(margin, e.tol)
}

// rowsAttainable checks each row's minimum activity over the free variables.
func (e *engine) rowsAttainable() bool {
	for i := range e.rows {
		r := &e.rows[i]
		minAct := 0.0
		for _, t := range r.terms {
			switch e.fixed[t.Var] {
			case -1:
				if t.Coef < 0 {
					minAct += t.Coef
				}
			case 1:
				minAct += t.Coef
			}
		}
		if minAct > r.rhs+e.tol {
			return false
		}
	}
	return true
}

// trivialBound is the objective of the fixed part plus every positive free coefficient.
func (e *engine) trivialBound() float64 {
	bound := 0.0
	for v, val := range e.fixed {
		switch {
		case val == 1:
			bound += e.obj[v]
		case val == -1 && e.obj[v] > 0:
			bound += e.obj[v]
		}
	}
	return bound
}

// fixedObjective is the objective contribution of variables fixed to one.
func (e *engine) fixedObjective() float64 {
	sum := 0.0
	for v, val := range e.fixed {
		if val == 1 {
			sum += e.obj[v]
		}
	}
	return sum
}

// mostFractional returns the free variable whose LP value is closest to 0.5,
// or -1 when every free variable is integral.
func (e *engine) mostFractional(point []float64) int {
	best, bestDist := -1, 0.5-e.tol
	for v, val := range e.fixed {
		if val != -1 {
			continue
		}
		if d := math.Abs(point[v] - 0.5); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

// heaviestFree returns the free variable with the largest absolute objective
// coefficient (lowest index on ties), or -1 when all variables are fixed.
func (e *engine) heaviestFree() int {
	best, weight := -1, -1.0
	for v, val := range e.fixed {
		if val != -1 {
			continue
		}
		if w := math.Abs(e.obj[v]); w > weight {
			best, weight = v, w
		}
	}
	return best
}

// assignment returns the current fixing with free variables at zero.
func (e *engine) assignment() []float64 {
	values := make([]float64, e.n)
	for v, val := range e.fixed {
		if val == 1 {
			values[v] = 1
		}
	}
	return values
}

func (e *engine) feasible(values []float64) bool {
	for i := range e.rows {
		act := 0.0
		for _, t := range e.rows[i].terms {
			act += t.Coef * values[t.Var]
		}
		if act > e.rows[i].rhs+e.tol {
			return false
		}
	}
	return true
}

// tryIncumbent records values as the new incumbent when feasible and better.
func (e *engine) tryIncumbent(values []float64) {
	if !e.feasible(values) {
		return
	}
	obj := 0.0
	for v, c := range e.obj {
		obj += c * values[v]
	}
	if e.found && obj <= e.bestObj+e.tol {
		return
	}
	e.best = values
	e.bestObj = obj
	e.found = true
}

func roundDown(point []float64, tol float64) []float64 {
	values := make([]float64, len(point))
	for v, x := range point {
		if x >= 1-tol {
			values[v] = 1
		}
	}
	return values
}

func roundNearest(point []float64) []float64 {
	values := make([]float64, len(point))
	for v, x := range point {
		if x >= 0.5 {
			values[v] = 1
		}
	}
	return values
}
