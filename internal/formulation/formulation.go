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

// Package formulation turns an instance into the cache-placement binary program.
//
// Variables:
//   - y_c_v for every cache c and video v: video v is stored in cache c
//   - x_r_c for every candidate edge: request r is credited to cache c
//
// Constraints:
//   - Capacity_c: sum_v size(v) * y_c_v <= X
//   - Link_r_c:   x_r_c - y_c_v <= 0
//   - OneCache_r: sum_c x_r_c <= 1, only for requests with at least one edge
//
// The objective maximizes sum saving(r, c) * x_r_c.
package formulation

import (
	"fmt"

	"github.com/llm-d/cache-placement-optimizer/pkg/core"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

// ModelName is the name given to every built model.
const ModelName = "streaming_videos"

// Formulation is a built model together with the variable layout needed to read a solution back.
type Formulation struct {
	Model    *solver.Model
	Instance *core.Instance
	// Edges are the candidate edges; Edges[i] owns variable xvars[i].
	Edges []Edge

	yvars []solver.VarID
	xvars []solver.VarID
	stats Stats
}

// Stats summarizes the size of a formulation.
type Stats struct {
	YVars               int   `json:"yVars"`
	XVars               int   `json:"xVars"`
	CapacityConstraints int   `json:"capacityConstraints"`
	LinkConstraints     int   `json:"linkConstraints"`
	OneCacheConstraints int   `json:"oneCacheConstraints"`
	ExcludedRequests    int   `json:"excludedRequests"`
	MaxObjective        int64 `json:"maxObjective"`
}

// Constraints returns the total number of constraints.
func (s Stats) Constraints() int {
	return s.CapacityConstraints + s.LinkConstraints + s.OneCacheConstraints
}

// Build validates inst and assembles its model.
func Build(inst *core.Instance) (*Formulation, error) {
	if errs := inst.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid instance: %w", errs.ToAggregate())
	}

	m := solver.NewModel(ModelName)
	f := &Formulation{
		Model:    m,
		Instance: inst,
		Edges:    CandidateEdges(inst),
		yvars:    make([]solver.VarID, inst.CacheCount*inst.VideoCount),
	}

	for c := 0; c < inst.CacheCount; c++ {
		for v := 0; v < inst.VideoCount; v++ {
			f.yvars[c*inst.VideoCount+v] = m.NewBool(fmt.Sprintf("y_%d_%d", c, v))
		}
	}

	for c := 0; c < inst.CacheCount; c++ {
		terms := make([]solver.Term, 0, inst.VideoCount)
		for v, size := range inst.VideoSizes {
			terms = append(terms, solver.Term{Coef: float64(size), Var: f.Y(c, v)})
		}
		m.AddConstraint(fmt.Sprintf("Capacity_%d", c), solver.LessOrEqual, float64(inst.CacheCapacity), terms...)
	}

	f.xvars = make([]solver.VarID, len(f.Edges))
	perRequest := make([][]solver.Term, inst.RequestCount)
	for i, e := range f.Edges {
		x := m.NewBool(fmt.Sprintf("x_%d_%d", e.Request, e.Cache))
		f.xvars[i] = x
		m.AddConstraint(fmt.Sprintf("Link_%d_%d", e.Request, e.Cache), solver.LessOrEqual, 0,
			solver.Term{Coef: 1, Var: x},
			solver.Term{Coef: -1, Var: f.Y(e.Cache, e.Video)})
		perRequest[e.Request] = append(perRequest[e.Request], solver.Term{Coef: 1, Var: x})
	}

	excluded := 0
	oneCache := 0
	for r, terms := range perRequest {
		if len(terms) == 0 {
			excluded++
			continue
		}
		m.AddConstraint(fmt.Sprintf("OneCache_%d", r), solver.LessOrEqual, 1, terms...)
		oneCache++
	}

	m.SetObjective(solver.Maximize, ObjectiveTerms(f.Edges, f.xvars))

	f.stats = Stats{
		YVars:               len(f.yvars),
		XVars:               len(f.xvars),
		CapacityConstraints: inst.CacheCount,
		LinkConstraints:     len(f.Edges),
		OneCacheConstraints: oneCache,
		ExcludedRequests:    excluded,
		MaxObjective:        maxObjective(f.Edges),
	}
	return f, nil
}

// Y returns the storage variable of video v in cache c.
func (f *Formulation) Y(c, v int) solver.VarID {
	return f.yvars[c*f.Instance.VideoCount+v]
}

// X returns the credit variable of Edges[i].
func (f *Formulation) X(i int) solver.VarID {
	return f.xvars[i]
}

// Stats returns the size summary computed by Build.
func (f *Formulation) Stats() Stats {
	return f.stats
}

// Credited returns the edges whose credit variable is set in res.
func (f *Formulation) Credited(res *solver.Result) []Edge {
	if !res.HasSolution() {
		return nil
	}
	var credited []Edge
	for i, e := range f.Edges {
		if res.Value(f.xvars[i]) > 0.5 {
			credited = append(credited, e)
		}
	}
	return credited
}

// maxObjective is the objective when every request gets its best edge, ignoring capacity.
func maxObjective(edges []Edge) int64 {
	var total int64
	best := int64(0)
	for i, e := range edges {
		if e.Saving > best {
			best = e.Saving
		}
		if i == len(edges)-1 || edges[i+1].Request != e.Request {
			total += best
			best = 0
		}
	}
	return total
}
