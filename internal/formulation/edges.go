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

package formulation

import (
	"github.com/llm-d/cache-placement-optimizer/pkg/core"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

// Edge is a beneficial (request, cache) pair: the cache is connected to the
// request's endpoint and beats the data center.
type Edge struct {
	Request int `json:"request"`
	Cache   int `json:"cache"`
	Video   int `json:"video"`
	// Saving is (L_d - cache latency) * request count.
	Saving int64 `json:"saving"`
}

// CandidateEdges lists every beneficial (request, cache) pair in request order,
// then cache-id order. Requests whose endpoint has no cache faster than the data
// center produce no edge.
func CandidateEdges(inst *core.Instance) []Edge {
	var edges []Edge
	for r, req := range inst.Requests {
		e := inst.Endpoints[req.Endpoint]
		for _, link := range e.Caches {
			if link.Latency >= e.DataCenterLatency {
				continue
			}
			edges = append(edges, Edge{
				Request: r,
				Cache:   link.Cache,
				Video:   req.Video,
				Saving:  int64(e.DataCenterLatency-link.Latency) * int64(req.Count),
			})
		}
	}
	return edges
}

// ObjectiveTerms folds the edges into the objective sum(saving * x). xvars[i] is
// the variable of edges[i].
func ObjectiveTerms(edges []Edge, xvars []solver.VarID) []solver.Term {
	terms := make([]solver.Term, len(edges))
	for i, e := range edges {
		terms[i] = solver.Term{Coef: float64(e.Saving), Var: xvars[i]}
	}
	return terms
}
