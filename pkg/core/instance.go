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

package core

import (
	"fmt"
	"sort"
)

// Params holds the global parameters announced on the first line of an instance.
type Params struct {
	// VideoCount is the number of videos (V).
	VideoCount int `json:"videoCount"`
	// EndpointCount is the number of endpoints (E).
	EndpointCount int `json:"endpointCount"`
	// RequestCount is the number of request descriptions (R).
	RequestCount int `json:"requestCount"`
	// CacheCount is the number of cache servers (C).
	CacheCount int `json:"cacheCount"`
	// CacheCapacity is the uniform per-cache size limit (X), in the same unit as video sizes.
	CacheCapacity int `json:"cacheCapacity"`
}

// String returns the compact V/E/R/C/X form used in log lines.
func (p Params) String() string {
	return fmt.Sprintf("V=%d E=%d R=%d C=%d X=%d",
		p.VideoCount, p.EndpointCount, p.RequestCount, p.CacheCount, p.CacheCapacity)
}

// CacheLink is a connection between an endpoint and a cache server.
type CacheLink struct {
	// Cache is the cache id, in [0, CacheCount).
	Cache int `json:"cache"`
	// Latency is the latency from the endpoint to the cache.
	Latency int `json:"latency"`
}

// Endpoint is a network access point through which requests arrive.
type Endpoint struct {
	// DataCenterLatency is the latency of serving a request from the data center.
	DataCenterLatency int `json:"dataCenterLatency"`
	// Caches are the connected caches, ordered by cache id.
	Caches []CacheLink `json:"caches,omitempty"`
}

// Latency returns the latency to the given cache and whether the cache is connected.
func (e Endpoint) Latency(cache int) (int, bool) {
	i := sort.Search(len(e.Caches), func(i int) bool { return e.Caches[i].Cache >= cache })
	if i < len(e.Caches) && e.Caches[i].Cache == cache {
		return e.Caches[i].Latency, true
	}
	return 0, false
}

// Request describes Count requests for Video arriving at Endpoint.
type Request struct {
	Video    int `json:"video"`
	Endpoint int `json:"endpoint"`
	Count    int `json:"count"`
}

// Instance is a parsed problem instance. It is never mutated after construction.
type Instance struct {
	Params

	// VideoSizes is indexed by video id; len(VideoSizes) == VideoCount.
	VideoSizes []int `json:"videoSizes"`
	// Endpoints is indexed by endpoint id; len(Endpoints) == EndpointCount.
	Endpoints []Endpoint `json:"endpoints"`
	// Requests is indexed by request id; len(Requests) == RequestCount.
	Requests []Request `json:"requests"`
}

// TotalRequests returns the sum of request counts.
func (inst *Instance) TotalRequests() int64 {
	var total int64
	for _, r := range inst.Requests {
		total += int64(r.Count)
	}
	return total
}
