// Package core provides the fundamental data structures of the cache-placement optimizer.
//
// This package contains the domain models that every stage of the pipeline exchanges:
//
//   - Params: global instance parameters (videos, endpoints, requests, caches, capacity)
//   - Instance: a parsed problem instance (video sizes, endpoints, request descriptions)
//   - Endpoint / CacheLink: data-center latency and the caches reachable from an endpoint
//   - Request: how many times a video is requested from an endpoint
//   - Placement: the solved cache contents together with the objective value
//
// Example usage:
//
//	inst := &core.Instance{
//	    Params:     core.Params{VideoCount: 1, EndpointCount: 1, RequestCount: 1, CacheCount: 1, CacheCapacity: 10},
//	    VideoSizes: []int{3},
//	    Endpoints: []core.Endpoint{{
//	        DataCenterLatency: 100,
//	        Caches:            []core.CacheLink{{Cache: 0, Latency: 10}},
//	    }},
//	    Requests: []core.Request{{Video: 0, Endpoint: 0, Count: 1000}},
//	}
//	if errs := inst.Validate(); len(errs) > 0 {
//	    return errs.ToAggregate()
//	}
//
// The core package is designed to be:
//   - Immutable once built (stages hand values forward, never back)
//   - Independent of any solver backend (pure domain logic)
//   - Validated with field paths so errors point at the offending record
package core
