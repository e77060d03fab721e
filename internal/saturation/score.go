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

package saturation

import (
	"github.com/llm-d/cache-placement-optimizer/pkg/core"
)

// Scoring is the contest score of a placement.
type Scoring struct {
	// TimeSaved is the total latency saved over all individual requests.
	TimeSaved int64 `json:"timeSaved"`
	// Requests is the number of individual requests.
	Requests int64 `json:"requests"`
	// ServedFromCache counts request descriptions served by a cache.
	ServedFromCache int `json:"servedFromCache"`
	// Points is TimeSaved * 1000 / Requests, rounded down.
	Points int64 `json:"points"`
}

type key struct{ cache, video int }

// Score serves every request from the fastest connected cache storing its video.
func Score(inst *core.Instance, p *core.Placement) Scoring {
	stored := make(map[key]struct{})
	for _, cc := range p.Caches {
		for _, v := range cc.Videos {
			stored[key{cc.Cache, v}] = struct{}{}
		}
	}

	var s Scoring
	for _, req := range inst.Requests {
		s.Requests += int64(req.Count)
		e := inst.Endpoints[req.Endpoint]
		best := e.DataCenterLatency
		for _, link := range e.Caches {
			if _, ok := stored[key{link.Cache, req.Video}]; ok && link.Latency < best {
				best = link.Latency
			}
		}
		if best < e.DataCenterLatency {
			s.ServedFromCache++
			s.TimeSaved += int64(e.DataCenterLatency-best) * int64(req.Count)
		}
	}
	if s.Requests > 0 {
		s.Points = s.TimeSaved * 1000 / s.Requests
	}
	return s
}
