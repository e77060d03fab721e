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

package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/llm-d/cache-placement-optimizer/internal/formulation"
	"github.com/llm-d/cache-placement-optimizer/pkg/core"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

// StoredThreshold is the value above which a storage variable counts as set.
const StoredThreshold = 0.5

// Extract reads the cache contents out of res. It returns solver.ErrNoSolutionFound
// when res carries no feasible assignment.
func Extract(f *formulation.Formulation, res *solver.Result) (*core.Placement, error) {
	if err := res.Err(); err != nil {
		return nil, err
	}

	inst := f.Instance
	p := &core.Placement{
		Objective:     res.Objective,
		ProvenOptimal: res.ProvenOptimal(),
		Caches:        []core.CacheContent{},
	}
	for c := 0; c < inst.CacheCount; c++ {
		var videos []int
		for v := 0; v < inst.VideoCount; v++ {
			if res.Value(f.Y(c, v)) > StoredThreshold {
				videos = append(videos, v)
			}
		}
		if len(videos) > 0 {
			p.Caches = append(p.Caches, core.CacheContent{Cache: c, Videos: videos})
		}
	}
	return p, nil
}

// Write serializes p in the output file format.
func Write(w io.Writer, p *core.Placement) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)

	buf = strconv.AppendInt(buf[:0], int64(p.UsedCaches()), 10)
	buf = append(buf, '\n')
	if _, err := bw.Write(buf); err != nil {
		return err
	}
	for _, cc := range p.Caches {
		if len(cc.Videos) == 0 {
			continue
		}
		buf = strconv.AppendInt(buf[:0], int64(cc.Cache), 10)
		for _, v := range cc.Videos {
			buf = append(buf, ' ')
			buf = strconv.AppendInt(buf, int64(v), 10)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes p to path through a temporary file in the same directory
// that is renamed into place.
func WriteFile(path string, p *core.Placement) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary output file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, p); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Read parses the output file format. Objective and ProvenOptimal are not part of
// the format and are left zero.
func Read(r io.Reader) (*core.Placement, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64<<20)
	line := 0
	next := func() ([]int, error) {
		for sc.Scan() {
			line++
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			vals := make([]int, len(fields))
			for i, f := range fields {
				v, err := strconv.Atoi(f)
				if err != nil || v < 0 {
					return nil, fmt.Errorf("line %d: %q is not a non-negative integer", line, f)
				}
				vals[i] = v
			}
			return vals, nil
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	header, err := next()
	if err != nil {
		return nil, fmt.Errorf("failed to read cache count: %w", err)
	}
	if len(header) != 1 {
		return nil, fmt.Errorf("line %d: expected a single cache count, got %d values", line, len(header))
	}

	p := &core.Placement{Caches: make([]core.CacheContent, 0, header[0])}
	for i := 0; i < header[0]; i++ {
		vals, err := next()
		if err != nil {
			return nil, fmt.Errorf("failed to read cache %d of %d: %w", i+1, header[0], err)
		}
		if len(vals) < 2 {
			return nil, fmt.Errorf("line %d: cache %d lists no videos", line, vals[0])
		}
		p.Caches = append(p.Caches, core.CacheContent{Cache: vals[0], Videos: vals[1:]})
	}
	switch _, err := next(); {
	case err == nil:
		return nil, fmt.Errorf("line %d: unexpected data after %d caches", line, header[0])
	case !errors.Is(err, io.EOF):
		return nil, err
	}
	return p, nil
}
