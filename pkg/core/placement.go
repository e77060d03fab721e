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

// CacheContent lists the videos stored in one cache.
type CacheContent struct {
	// Cache is the cache id.
	Cache int `json:"cache"`
	// Videos are the stored video ids in increasing order.
	Videos []int `json:"videos"`
}

// Placement is the solved assignment of videos to caches.
// Only caches holding at least one video are listed, in increasing cache id order.
type Placement struct {
	// Objective is the total latency saved as reported by the solver.
	Objective float64 `json:"objective"`
	// ProvenOptimal is false when the solve was cut off before optimality was proven.
	ProvenOptimal bool `json:"provenOptimal"`
	// Caches holds the non-empty caches.
	Caches []CacheContent `json:"caches"`
}

// Stored reports whether the placement stores video in cache.
func (p *Placement) Stored(cache, video int) bool {
	for _, cc := range p.Caches {
		if cc.Cache != cache {
			continue
		}
		for _, v := range cc.Videos {
			if v == video {
				return true
			}
		}
	}
	return false
}

// UsedCaches returns the number of caches with at least one video.
func (p *Placement) UsedCaches() int {
	n := 0
	for _, cc := range p.Caches {
		if len(cc.Videos) > 0 {
			n++
		}
	}
	return n
}
