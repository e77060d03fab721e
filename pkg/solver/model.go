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
	"fmt"
)

// VarID identifies a variable within a Model. IDs are dense, starting at 0.
type VarID int

// Term is a coefficient applied to a variable.
type Term struct {
	Coef float64
	Var  VarID
}

// Sense is the relation of a linear constraint.
type Sense int

const (
	LessOrEqual Sense = iota
	GreaterOrEqual
	Equal
)

// String returns the operator form of the sense.
func (s Sense) String() string {
	switch s {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// ObjectiveSense is the optimization direction.
type ObjectiveSense int

const (
	Maximize ObjectiveSense = iota
	Minimize
)

// String returns "maximize" or "minimize".
func (s ObjectiveSense) String() string {
	if s == Minimize {
		return "minimize"
	}
	return "maximize"
}

// Variable is a boolean decision variable.
type Variable struct {
	Name string
}

// Constraint is a linear constraint: sum(Terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Satisfied reports whether values satisfy the constraint within tol.
func (c *Constraint) Satisfied(values []float64, tol float64) bool {
	lhs := 0.0
	for _, t := range c.Terms {
		lhs += t.Coef * values[t.Var]
	}
	switch c.Sense {
	case LessOrEqual:
		return lhs <= c.RHS+tol
	case GreaterOrEqual:
		return lhs >= c.RHS-tol
	default:
		return lhs >= c.RHS-tol && lhs <= c.RHS+tol
	}
}

// Model is a pure binary integer program. Variables and constraints are appended
// while the model is built; backends only read it.
type Model struct {
	name        string
	vars        []Variable
	constraints []Constraint
	objective   []Term
	sense       ObjectiveSense
}

// NewModel creates an empty model with a maximize objective.
func NewModel(name string) *Model {
	return &Model{name: name, sense: Maximize}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// NewBool declares a boolean variable and returns its id.
func (m *Model) NewBool(name string) VarID {
	m.vars = append(m.vars, Variable{Name: name})
	return VarID(len(m.vars) - 1)
}

// AddConstraint appends the linear constraint sum(terms) sense rhs.
// The terms slice is copied.
func (m *Model) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) {
	m.constraints = append(m.constraints, Constraint{
		Name:  name,
		Terms: append([]Term(nil), terms...),
		Sense: sense,
		RHS:   rhs,
	})
}

// SetObjective replaces the objective. The terms slice is copied.
func (m *Model) SetObjective(sense ObjectiveSense, terms []Term) {
	m.sense = sense
	m.objective = append([]Term(nil), terms...)
}

// NumVars returns the number of declared variables.
func (m *Model) NumVars() int { return len(m.vars) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.constraints) }

// Var returns the declaration of v.
func (m *Model) Var(v VarID) Variable { return m.vars[v] }

// Constraints returns the constraints. Callers must not modify the result.
func (m *Model) Constraints() []Constraint { return m.constraints }

// Objective returns the objective sense and terms. Callers must not modify the terms.
func (m *Model) Objective() (ObjectiveSense, []Term) { return m.sense, m.objective }

// Evaluate returns the objective value of an assignment.
func (m *Model) Evaluate(values []float64) float64 {
	obj := 0.0
	for _, t := range m.objective {
		obj += t.Coef * values[t.Var]
	}
	return obj
}

// Feasible reports whether an assignment satisfies every constraint within tol.
func (m *Model) Feasible(values []float64, tol float64) bool {
	if len(values) != len(m.vars) {
		return false
	}
	for i := range m.constraints {
		if !m.constraints[i].Satisfied(values, tol) {
			return false
		}
	}
	return true
}

// Validate checks that every term references a declared variable.
func (m *Model) Validate() error {
	check := func(where string, terms []Term) error {
		for _, t := range terms {
			if t.Var < 0 || int(t.Var) >= len(m.vars) {
				return fmt.Errorf("%s references undeclared variable %d", where, t.Var)
			}
		}
		return nil
	}
	if err := check("objective", m.objective); err != nil {
		return err
	}
	for i := range m.constraints {
		if err := check("constraint "+m.constraints[i].Name, m.constraints[i].Terms); err != nil {
			return err
		}
	}
	return nil
}

// String returns a one-line summary of the model size.
func (m *Model) String() string {
	return fmt.Sprintf("Model(%s): %s, %d vars, %d constraints, %d objective terms",
		m.name, m.sense, len(m.vars), len(m.constraints), len(m.objective))
}
