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

// Package dataset reads problem instances in the whitespace-separated integer format:
//
//	V E R C X
//	size_0 ... size_{V-1}
//	E times: L_d K, then K lines "cacheId latency"
//	R times: videoId endpointId count
//
// Every group sits on its own line; blank lines between groups are ignored.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/llm-d/cache-placement-optimizer/pkg/core"
)

// maxLineBytes bounds a single input line; the video size line of the largest
// public instances is well below this.
const maxLineBytes = 64 << 20

// ParseFile opens and parses the instance at path.
func ParseFile(path string) (*core.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close() //nolint:errcheck

	return Parse(f)
}

// Parse reads one instance from r. All structural problems are reported as
// *MalformedInputError; read failures are returned as is.
func Parse(r io.Reader) (*core.Instance, error) {
	lr := newLineReader(r)
	inst := &core.Instance{}

	paramsPath := field.NewPath("params")
	header, line, err := lr.ints(paramsPath, 5)
	if err != nil {
		return nil, err
	}
	inst.Params = core.Params{
		VideoCount:    header[0],
		EndpointCount: header[1],
		RequestCount:  header[2],
		CacheCount:    header[3],
		CacheCapacity: header[4],
	}
	if err := first(line, core.ValidateParams(paramsPath, inst.Params)); err != nil {
		return nil, err
	}

	sizesPath := field.NewPath("videoSizes")
	inst.VideoSizes = []int{}
	if inst.VideoCount > 0 {
		sizes, line, err := lr.ints(sizesPath, inst.VideoCount)
		if err != nil {
			return nil, err
		}
		for i, size := range sizes {
			if err := first(line, core.ValidateVideoSize(sizesPath.Index(i), size)); err != nil {
				return nil, err
			}
		}
		inst.VideoSizes = sizes
	}

	inst.Endpoints = make([]core.Endpoint, inst.EndpointCount)
	for i := range inst.Endpoints {
		e, err := lr.endpoint(field.NewPath("endpoints").Index(i), inst.Params)
		if err != nil {
			return nil, err
		}
		inst.Endpoints[i] = e
	}

	inst.Requests = make([]core.Request, inst.RequestCount)
	for i := range inst.Requests {
		path := field.NewPath("requests").Index(i)
		vals, line, err := lr.ints(path, 3)
		if err != nil {
			return nil, err
		}
		req := core.Request{Video: vals[0], Endpoint: vals[1], Count: vals[2]}
		if err := first(line, core.ValidateRequest(path, req, inst.Params)); err != nil {
			return nil, err
		}
		inst.Requests[i] = req
	}

	fields, line, err := lr.next()
	switch {
	case err == nil:
		return nil, malformed(line, field.Forbidden(field.NewPath("requests"),
			fmt.Sprintf("unexpected data after the last request: %q", strings.Join(fields, " "))))
	case !errors.Is(err, io.EOF):
		return nil, err
	}
	return inst, nil
}

// endpoint reads the "L_d K" line and its K cache links.
func (lr *lineReader) endpoint(path *field.Path, p core.Params) (core.Endpoint, error) {
	vals, line, err := lr.ints(path, 2)
	if err != nil {
		return core.Endpoint{}, err
	}
	e := core.Endpoint{DataCenterLatency: vals[0]}
	if e.DataCenterLatency < 0 {
		return e, malformed(line, field.Invalid(path.Child("dataCenterLatency"), e.DataCenterLatency, "must be non-negative"))
	}
	k := vals[1]
	if k < 0 || k > p.CacheCount {
		return e, malformed(line, field.Invalid(path.Child("cacheCount"), k,
			fmt.Sprintf("must be in [0, %d]", p.CacheCount)))
	}

	seen := make(map[int]struct{}, k)
	for j := 0; j < k; j++ {
		linkPath := path.Child("caches").Index(j)
		vals, line, err := lr.ints(linkPath, 2)
		if err != nil {
			return e, err
		}
		link := core.CacheLink{Cache: vals[0], Latency: vals[1]}
		if err := first(line, core.ValidateCacheLink(linkPath, link, p)); err != nil {
			return e, err
		}
		if _, dup := seen[link.Cache]; dup {
			return e, malformed(line, field.Duplicate(linkPath.Child("cache"), link.Cache))
		}
		seen[link.Cache] = struct{}{}
		e.Caches = append(e.Caches, link)
	}
	sort.Slice(e.Caches, func(a, b int) bool { return e.Caches[a].Cache < e.Caches[b].Cache })
	return e, nil
}

type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lineReader{sc: sc}
}

// next returns the fields of the next non-blank line.
func (lr *lineReader) next() ([]string, int, error) {
	for lr.sc.Scan() {
		lr.line++
		if fields := strings.Fields(lr.sc.Text()); len(fields) > 0 {
			return fields, lr.line, nil
		}
	}
	if err := lr.sc.Err(); err != nil {
		return nil, lr.line, fmt.Errorf("failed to read dataset: %w", err)
	}
	return nil, lr.line, io.EOF
}

// ints reads the next group, which must hold exactly want integers.
func (lr *lineReader) ints(path *field.Path, want int) ([]int, int, error) {
	fields, line, err := lr.next()
	if errors.Is(err, io.EOF) {
		return nil, 0, malformed(0, field.Required(path, fmt.Sprintf("missing group of %d integers", want)))
	}
	if err != nil {
		return nil, line, err
	}
	if len(fields) != want {
		return nil, line, malformed(line, field.Invalid(path, len(fields),
			fmt.Sprintf("expected %d integers", want)))
	}
	vals := make([]int, want)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, line, malformed(line, field.Invalid(path, f, "must be an integer"))
		}
		vals[i] = v
	}
	return vals, line, nil
}
