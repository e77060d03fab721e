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
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/llm-d/cache-placement-optimizer/internal/formulation"
	"github.com/llm-d/cache-placement-optimizer/pkg/core"
)

// SaturatedUtilization is the utilization from which a cache counts as saturated.
const SaturatedUtilization = 0.95

// CacheUsage is the capacity consumption of one cache.
type CacheUsage struct {
	Cache       int     `json:"cache"`
	Videos      int     `json:"videos"`
	Used        int64   `json:"used"`
	Capacity    int64   `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// Report summarizes capacity consumption over every cache of the instance.
type Report struct {
	// Caches has one entry per cache id, including empty caches.
	Caches          []CacheUsage `json:"caches"`
	UsedCaches      int          `json:"usedCaches"`
	SaturatedCaches int          `json:"saturatedCaches"`
	StoredVideos    int          `json:"storedVideos"`
	TotalUsed       int64        `json:"totalUsed"`
	TotalCapacity   int64        `json:"totalCapacity"`
	MeanUtilization float64      `json:"meanUtilization"`
}

// Analyze computes per-cache usage. Out-of-range ids in p are ignored; use Verify to reject them.
func Analyze(inst *core.Instance, p *core.Placement) Report {
	r := Report{Caches: make([]CacheUsage, inst.CacheCount)}
	for c := range r.Caches {
		r.Caches[c] = CacheUsage{Cache: c, Capacity: int64(inst.CacheCapacity)}
	}

	for _, cc := range p.Caches {
		if cc.Cache < 0 || cc.Cache >= inst.CacheCount {
			continue
		}
		u := &r.Caches[cc.Cache]
		for _, v := range cc.Videos {
			if v < 0 || v >= inst.VideoCount {
				continue
			}
			u.Videos++
			u.Used += int64(inst.VideoSizes[v])
		}
	}

	for i := range r.Caches {
		u := &r.Caches[i]
		if u.Capacity > 0 {
			u.Utilization = float64(u.Used) / float64(u.Capacity)
		}
		if u.Videos > 0 {
			r.UsedCaches++
		}
		if u.Utilization >= SaturatedUtilization {
			r.SaturatedCaches++
		}
		r.StoredVideos += u.Videos
		r.TotalUsed += u.Used
		r.TotalCapacity += u.Capacity
	}
	if r.TotalCapacity > 0 {
		r.MeanUtilization = float64(r.TotalUsed) / float64(r.TotalCapacity)
	}
	return r
}

// Verify checks p against the instance and returns every violation found.
func Verify(inst *core.Instance, p *core.Placement) error {
	var errs field.ErrorList
	seen := make(map[int]bool, len(p.Caches))

	for i, cc := range p.Caches {
		path := field.NewPath("caches").Index(i)
		if cc.Cache < 0 || cc.Cache >= inst.CacheCount {
			errs = append(errs, field.Invalid(path.Child("cache"), cc.Cache,
				fmt.Sprintf("must be in [0, %d)", inst.CacheCount)))
			continue
		}
		if seen[cc.Cache] {
			errs = append(errs, field.Duplicate(path.Child("cache"), cc.Cache))
		}
		seen[cc.Cache] = true

		if len(cc.Videos) == 0 {
			errs = append(errs, field.Required(path.Child("videos"), "empty caches must be omitted"))
		}
		var used int64
		for j, v := range cc.Videos {
			vpath := path.Child("videos").Index(j)
			if v < 0 || v >= inst.VideoCount {
				errs = append(errs, field.Invalid(vpath, v, fmt.Sprintf("must be in [0, %d)", inst.VideoCount)))
				continue
			}
			if j > 0 && v <= cc.Videos[j-1] {
				errs = append(errs, field.Invalid(vpath, v, "videos must be strictly increasing"))
			}
			used += int64(inst.VideoSizes[v])
		}
		if used > int64(inst.CacheCapacity) {
			errs = append(errs, field.Invalid(path.Child("videos"), used,
				fmt.Sprintf("stored size exceeds cache capacity %d", inst.CacheCapacity)))
		}
	}
	return errs.ToAggregate()
}

// VerifyCredits checks the linking and mutual exclusion invariants of the credited edges.
func VerifyCredits(p *core.Placement, credited []formulation.Edge) error {
	var errs field.ErrorList
	servedBy := make(map[int]int, len(credited))
	for i, e := range credited {
		path := field.NewPath("credited").Index(i)
		if !p.Stored(e.Cache, e.Video) {
			errs = append(errs, field.Invalid(path, fmt.Sprintf("request %d via cache %d", e.Request, e.Cache),
				fmt.Sprintf("cache does not store video %d", e.Video)))
		}
		if prev, ok := servedBy[e.Request]; ok {
			errs = append(errs, field.Invalid(path, fmt.Sprintf("request %d via cache %d", e.Request, e.Cache),
				fmt.Sprintf("request already credited to cache %d", prev)))
			continue
		}
		servedBy[e.Request] = e.Cache
	}
	return errs.ToAggregate()
}
