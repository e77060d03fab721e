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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-d/cache-placement-optimizer/internal/formulation"
	"github.com/llm-d/cache-placement-optimizer/pkg/core"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver/branchbound"
)

func singleVideo(size int) *core.Instance {
	return &core.Instance{
		Params:     core.Params{VideoCount: 1, EndpointCount: 1, RequestCount: 1, CacheCount: 1, CacheCapacity: 10},
		VideoSizes: []int{size},
		Endpoints: []core.Endpoint{
			{DataCenterLatency: 100, Caches: []core.CacheLink{{Cache: 0, Latency: 10}}},
		},
		Requests: []core.Request{{Video: 0, Endpoint: 0, Count: 1000}},
	}
}

func twoCaches() *formulation.Formulation {
	inst := &core.Instance{
		Params:     core.Params{VideoCount: 3, EndpointCount: 1, RequestCount: 0, CacheCount: 3, CacheCapacity: 10},
		VideoSizes: []int{1, 1, 1},
		Endpoints:  []core.Endpoint{{DataCenterLatency: 10}},
		Requests:   []core.Request{},
	}
	f, err := formulation.Build(inst)
	if err != nil {
		panic(err)
	}
	return f
}

func TestExtract_Threshold(t *testing.T) {
	f := twoCaches()
	values := make([]float64, f.Model.NumVars())
	values[f.Y(0, 2)] = 0.51
	values[f.Y(0, 1)] = 0.5
	values[f.Y(2, 0)] = 1
	values[f.Y(2, 2)] = 0.9999

	p, err := Extract(f, &solver.Result{Status: solver.StatusFeasible, Objective: 42, Values: values})
	require.NoError(t, err)

	assert.Equal(t, &core.Placement{
		Objective:     42,
		ProvenOptimal: false,
		Caches: []core.CacheContent{
			{Cache: 0, Videos: []int{2}},
			{Cache: 2, Videos: []int{0, 2}},
		},
	}, p)
}

func TestExtract_NoSolution(t *testing.T) {
	_, err := Extract(twoCaches(), &solver.Result{Status: solver.StatusNoSolution})
	assert.ErrorIs(t, err, solver.ErrNoSolutionFound)
}

func TestExtract_SolvedScenarios(t *testing.T) {
	tests := []struct {
		name string
		size int
		want string
	}{
		{name: "video fits", size: 3, want: "1\n0 0\n"},
		{name: "video exceeds capacity", size: 20, want: "0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := formulation.Build(singleVideo(tt.size))
			require.NoError(t, err)
			res, err := branchbound.New(branchbound.Options{}).Solve(context.Background(), f.Model, solver.Config{})
			require.NoError(t, err)

			p, err := Extract(f, res)
			require.NoError(t, err)
			assert.True(t, p.ProvenOptimal)

			var buf bytes.Buffer
			require.NoError(t, Write(&buf, p))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWrite_SkipsEmptyCaches(t *testing.T) {
	p := &core.Placement{Caches: []core.CacheContent{
		{Cache: 1, Videos: []int{3, 7}},
		{Cache: 4},
		{Cache: 9, Videos: []int{0}},
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, p))
	assert.Equal(t, "2\n1 3 7\n9 0\n", buf.String())
}

func TestWriteFileAndRead(t *testing.T) {
	p := &core.Placement{Caches: []core.CacheContent{
		{Cache: 0, Videos: []int{1, 3}},
		{Cache: 2, Videos: []int{4}},
	}}
	path := filepath.Join(t.TempDir(), "out", "videos.out")

	require.NoError(t, WriteFile(path, p))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	got, err := Read(f)
	require.NoError(t, err)
	assert.Equal(t, p.Caches, got.Caches)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestWriteFile_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.out")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	require.NoError(t, WriteFile(path, &core.Placement{}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0\n", string(data))
}

func TestRead_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "header with two values", input: "1 2\n"},
		{name: "missing cache line", input: "2\n0 1\n"},
		{name: "cache without videos", input: "1\n0\n"},
		{name: "negative id", input: "1\n0 -1\n"},
		{name: "not a number", input: "1\n0 a\n"},
		{name: "trailing data", input: "1\n0 1\n1 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestRead_BlankLines(t *testing.T) {
	p, err := Read(strings.NewReader("\n2\n\n0 1 2\n\n3 4\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []core.CacheContent{
		{Cache: 0, Videos: []int{1, 2}},
		{Cache: 3, Videos: []int{4}},
	}, p.Caches)
}
