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

package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/cache-placement-optimizer/api/v1alpha1"
	"github.com/llm-d/cache-placement-optimizer/internal/config"
	"github.com/llm-d/cache-placement-optimizer/internal/dataset"
	"github.com/llm-d/cache-placement-optimizer/internal/logging"
	"github.com/llm-d/cache-placement-optimizer/internal/output"
	pkgconfig "github.com/llm-d/cache-placement-optimizer/pkg/config"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

const exampleInput = `5 2 4 3 100
50 50 80 30 110
1000 3
0 100
2 200
1 300
500 0
3 0 1500
0 1 1000
4 0 500
1 0 1000
`

const singleVideoInput = `1 1 1 1 100
50
100 1
0 10
0 0 1000
`

type fakeSolver struct {
	res *solver.Result
	err error
}

func (f *fakeSolver) Name() string { return "fake" }

func (f *fakeSolver) Solve(context.Context, *solver.Model, solver.Config) (*solver.Result, error) {
	return f.res, f.err
}

func fakeFactory(s solver.Solver) SolverFactory {
	return func(pkgconfig.SolverSpec) (solver.Solver, error) { return s, nil }
}

var _ = Describe("Optimizer", func() {
	var (
		dir string
		ctx context.Context
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		ctx = logr.NewContext(context.Background(), logging.Log)
	})

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	load := func(args ...string) *config.Config {
		cfg, err := config.Load(append([]string{"--backend", "branchbound"}, args...))
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	Context("with a solvable instance", func() {
		It("writes an optimal placement, the report and the metrics", func() {
			input := write("example.in", exampleInput)
			out := filepath.Join(dir, "out", "videos.out")
			report := filepath.Join(dir, "report.json")
			metricsFile := filepath.Join(dir, "run.prom")
			cfg := load(input, "-o", out, "--gap", "0", "--report-file", report, "--metrics-file", metricsFile)

			opt := NewOptimizer(cfg, nil, WithRunID("run-42"))
			res, err := opt.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.RunID).To(Equal("run-42"))
			Expect(res.Solve.Status).To(Equal(solver.StatusOptimal))
			Expect(res.Solve.Objective).To(BeNumerically("~", 2250000, 1e-6))
			Expect(res.Score.Points).To(Equal(int64(562500)))

			f, err := os.Open(out)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			written, err := output.Read(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(written.Stored(0, 1)).To(BeTrue())
			Expect(written.Stored(0, 3)).To(BeTrue())

			b, err := os.ReadFile(report)
			Expect(err).NotTo(HaveOccurred())
			var r v1alpha1.PlacementReport
			Expect(json.Unmarshal(b, &r)).To(Succeed())
			Expect(r.Kind).To(Equal(v1alpha1.Kind))
			Expect(string(r.UID)).To(Equal("run-42"))
			Expect(r.Name).To(Equal("example"))
			Expect(r.Status.Phase).To(Equal(v1alpha1.PhaseSucceeded))
			Expect(r.Spec.Solver.Backend).To(Equal("branchbound"))
			Expect(r.Spec.Params.CacheCount).To(Equal(3))
			Expect(r.Status.Model.AssignmentVariables).To(Equal(9))
			Expect(r.Status.Model.StorageVariables).To(Equal(15))
			Expect(r.Status.Score.Points).To(Equal(int64(562500)))

			m, err := os.ReadFile(metricsFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(m)).To(ContainSubstring("cacheplan_runs_total"))
			Expect(string(m)).To(ContainSubstring(`outcome="success"`))
			Expect(string(m)).To(ContainSubstring(`dataset="example"`))
		})

		It("writes the single cached video", func() {
			input := write("single.in", singleVideoInput)
			out := filepath.Join(dir, "videos.out")

			_, err := NewOptimizer(load(input, "-o", out), nil).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			b, err := os.ReadFile(out)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(b)).To(Equal("1\n0 0\n"))
		})

		It("writes an empty placement when no request can be sped up", func() {
			input := write("oversized.in", strings.Replace(singleVideoInput, "1 1 1 1 100\n50\n", "1 1 1 1 100\n150\n", 1))
			out := filepath.Join(dir, "videos.out")

			res, err := NewOptimizer(load(input, "-o", out), nil).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Solve.Objective).To(BeNumerically("==", 0))

			b, err := os.ReadFile(out)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(b)).To(Equal("0\n"))
		})

		It("exports the model in MPS format when asked", func() {
			input := write("single.in", singleVideoInput)
			mpsFile := filepath.Join(dir, "model", "videos.mps")

			_, err := NewOptimizer(load(input, "-o", filepath.Join(dir, "videos.out"), "--mps-file", mpsFile), nil).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			b, err := os.ReadFile(mpsFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(b)).To(HavePrefix("NAME streaming_videos"))
			Expect(string(b)).To(ContainSubstring("ENDATA"))
		})

		It("applies the dataset profile", func() {
			input := write("single.in", singleVideoInput)
			profiles := config.SolverProfileData{
				"single": {Dataset: "single", TimeLimit: "42s"},
			}
			cfg, err := config.Load([]string{input, "-o", filepath.Join(dir, "videos.out")})
			Expect(err).NotTo(HaveOccurred())

			var seen pkgconfig.SolverSpec
			factory := func(spec pkgconfig.SolverSpec) (solver.Solver, error) {
				seen = spec
				return &fakeSolver{res: &solver.Result{Status: solver.StatusNoSolution, Bound: math.NaN()}}, nil
			}
			_, err = NewOptimizer(cfg, profiles, WithSolverFactory(factory)).Run(ctx)
			Expect(err).To(MatchError(solver.ErrNoSolutionFound))
			Expect(seen.TimeLimit).NotTo(BeNil())
			Expect(seen.TimeLimit.String()).To(Equal("42s"))
			Expect(seen.Backend).To(Equal(pkgconfig.BackendHiGHS))
		})
	})

	Context("without a solution", func() {
		It("writes no solution file but records the outcome", func() {
			input := write("example.in", exampleInput)
			out := filepath.Join(dir, "videos.out")
			report := filepath.Join(dir, "report.yaml")
			cfg := load(input, "-o", out, "--report-file", report, "--report-format", "yaml")

			s := &fakeSolver{res: &solver.Result{Status: solver.StatusNoSolution, Bound: math.NaN()}}
			opt := NewOptimizer(cfg, nil, WithSolverFactory(fakeFactory(s)))
			res, err := opt.Run(ctx)

			Expect(errors.Is(err, solver.ErrNoSolutionFound)).To(BeTrue())
			Expect(res.Placement).To(BeNil())
			Expect(out).NotTo(BeAnExistingFile())

			b, err := os.ReadFile(report)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(b)).To(ContainSubstring("phase: NoSolution"))
			Expect(string(b)).NotTo(ContainSubstring("bound:"))
		})
	})

	Context("with failures", func() {
		It("reports a missing input file", func() {
			cfg := load(filepath.Join(dir, "missing.in"))
			_, err := NewOptimizer(cfg, nil).Run(ctx)
			Expect(errors.Is(err, ErrInvalidInput)).To(BeTrue())
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})

		It("reports malformed input", func() {
			input := write("bad.in", "1 1 1 1 100\n50\n100 1\n")
			_, err := NewOptimizer(load(input), nil).Run(ctx)
			Expect(errors.Is(err, ErrInvalidInput)).To(BeTrue())
			Expect(errors.Is(err, dataset.ErrMalformedInput)).To(BeTrue())
		})

		It("reports an unavailable solver before reading input", func() {
			cfg := load(filepath.Join(dir, "missing.in"))
			factory := func(pkgconfig.SolverSpec) (solver.Solver, error) {
				return nil, solver.ErrSolverUnavailable
			}
			_, err := NewOptimizer(cfg, nil, WithSolverFactory(factory)).Run(ctx)
			Expect(errors.Is(err, solver.ErrSolverUnavailable)).To(BeTrue())
		})

		It("rejects a solver result that breaks capacity", func() {
			input := write("example.in", exampleInput)
			out := filepath.Join(dir, "videos.out")
			cfg := load(input, "-o", out)

			// Every variable set: cache 0 stores all five videos.
			values := make([]float64, 24)
			for i := range values {
				values[i] = 1
			}
			s := &fakeSolver{res: &solver.Result{Status: solver.StatusFeasible, Values: values, Bound: math.NaN()}}
			_, err := NewOptimizer(cfg, nil, WithSolverFactory(fakeFactory(s))).Run(ctx)
			Expect(err).To(MatchError(ContainSubstring("placement failed verification")))
			Expect(out).NotTo(BeAnExistingFile())
		})

		It("passes solver errors through", func() {
			input := write("example.in", exampleInput)
			s := &fakeSolver{err: context.DeadlineExceeded}
			_, err := NewOptimizer(load(input, "-o", filepath.Join(dir, "videos.out")), nil,
				WithSolverFactory(fakeFactory(s))).Run(ctx)
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		})

		It("does not report missing files outside the input as input errors", func() {
			input := write("example.in", exampleInput)
			s := &fakeSolver{err: fmt.Errorf("open license: %w", os.ErrNotExist)}
			_, err := NewOptimizer(load(input, "-o", filepath.Join(dir, "videos.out")), nil,
				WithSolverFactory(fakeFactory(s))).Run(ctx)
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
			Expect(errors.Is(err, ErrInvalidInput)).To(BeFalse())
		})
	})
})

var _ = Describe("EncodeReport", func() {
	It("rejects unknown formats", func() {
		_, err := EncodeReport(v1alpha1.NewPlacementReport("x", "y"), "xml")
		Expect(err).To(HaveOccurred())
	})

	It("ends JSON with a newline", func() {
		b, err := EncodeReport(v1alpha1.NewPlacementReport("x", "y"), config.ReportFormatJSON)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(HaveSuffix("}\n"))
	})
})
