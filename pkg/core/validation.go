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

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ValidateParams checks that every global parameter is non-negative.
func ValidateParams(path *field.Path, p Params) field.ErrorList {
	var errs field.ErrorList
	for _, f := range []struct {
		name  string
		value int
	}{
		{"videoCount", p.VideoCount},
		{"endpointCount", p.EndpointCount},
		{"requestCount", p.RequestCount},
		{"cacheCount", p.CacheCount},
		{"cacheCapacity", p.CacheCapacity},
	} {
		if f.value < 0 {
			errs = append(errs, field.Invalid(path.Child(f.name), f.value, "must be non-negative"))
		}
	}
	return errs
}

// ValidateVideoSize checks a single video size.
func ValidateVideoSize(path *field.Path, size int) field.ErrorList {
	if size < 0 {
		return field.ErrorList{field.Invalid(path, size, "must be non-negative")}
	}
	return nil
}

// ValidateCacheLink checks a cache link against the announced cache count.
func ValidateCacheLink(path *field.Path, link CacheLink, p Params) field.ErrorList {
	var errs field.ErrorList
	if link.Cache < 0 || link.Cache >= p.CacheCount {
		errs = append(errs, field.Invalid(path.Child("cache"), link.Cache,
			fmt.Sprintf("must be in [0, %d)", p.CacheCount)))
	}
	if link.Latency < 0 {
		errs = append(errs, field.Invalid(path.Child("latency"), link.Latency, "must be non-negative"))
	}
	return errs
}

// ValidateEndpoint checks an endpoint and all of its cache links.
// Cache links must be sorted by cache id without duplicates.
func ValidateEndpoint(path *field.Path, e Endpoint, p Params) field.ErrorList {
	var errs field.ErrorList
	if e.DataCenterLatency < 0 {
		errs = append(errs, field.Invalid(path.Child("dataCenterLatency"), e.DataCenterLatency, "must be non-negative"))
	}
	for i, link := range e.Caches {
		linkPath := path.Child("caches").Index(i)
		errs = append(errs, ValidateCacheLink(linkPath, link, p)...)
		if i > 0 && link.Cache <= e.Caches[i-1].Cache {
			if link.Cache == e.Caches[i-1].Cache {
				errs = append(errs, field.Duplicate(linkPath.Child("cache"), link.Cache))
			} else {
				errs = append(errs, field.Invalid(linkPath.Child("cache"), link.Cache, "must be sorted by cache id"))
			}
		}
	}
	return errs
}

// ValidateRequest checks a request against the announced video and endpoint counts.
func ValidateRequest(path *field.Path, r Request, p Params) field.ErrorList {
	var errs field.ErrorList
	if r.Video < 0 || r.Video >= p.VideoCount {
		errs = append(errs, field.Invalid(path.Child("video"), r.Video,
			fmt.Sprintf("must be in [0, %d)", p.VideoCount)))
	}
	if r.Endpoint < 0 || r.Endpoint >= p.EndpointCount {
		errs = append(errs, field.Invalid(path.Child("endpoint"), r.Endpoint,
			fmt.Sprintf("must be in [0, %d)", p.EndpointCount)))
	}
	if r.Count < 0 {
		errs = append(errs, field.Invalid(path.Child("count"), r.Count, "must be non-negative"))
	}
	return errs
}

// Validate checks every invariant of the instance: parameter signs, collection
// lengths matching the announced counts, and every referenced id being in range.
func (inst *Instance) Validate() field.ErrorList {
	errs := ValidateParams(field.NewPath("params"), inst.Params)

	sizesPath := field.NewPath("videoSizes")
	if len(inst.VideoSizes) != inst.VideoCount {
		errs = append(errs, field.Invalid(sizesPath, len(inst.VideoSizes),
			fmt.Sprintf("expected %d video sizes", inst.VideoCount)))
	}
	for i, size := range inst.VideoSizes {
		errs = append(errs, ValidateVideoSize(sizesPath.Index(i), size)...)
	}

	endpointsPath := field.NewPath("endpoints")
	if len(inst.Endpoints) != inst.EndpointCount {
		errs = append(errs, field.Invalid(endpointsPath, len(inst.Endpoints),
			fmt.Sprintf("expected %d endpoints", inst.EndpointCount)))
	}
	for i, e := range inst.Endpoints {
		errs = append(errs, ValidateEndpoint(endpointsPath.Index(i), e, inst.Params)...)
	}

	requestsPath := field.NewPath("requests")
	if len(inst.Requests) != inst.RequestCount {
		errs = append(errs, field.Invalid(requestsPath, len(inst.Requests),
			fmt.Sprintf("expected %d requests", inst.RequestCount)))
	}
	for i, r := range inst.Requests {
		errs = append(errs, ValidateRequest(requestsPath.Index(i), r, inst.Params)...)
	}
	return errs
}
