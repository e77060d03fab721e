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

package e2e

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/cache-placement-optimizer/internal/config"
	"github.com/llm-d/cache-placement-optimizer/internal/dataset"
	"github.com/llm-d/cache-placement-optimizer/internal/logging"
	"github.com/llm-d/cache-placement-optimizer/internal/optimizer"
	"github.com/llm-d/cache-placement-optimizer/internal/output"
	"github.com/llm-d/cache-placement-optimizer/internal/saturation"
	"github.com/llm-d/cache-placement-optimizer/pkg/core"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

func fixture(name string) string {
	path, err := filepath.Abs(filepath.Join("testdata", name))
	Expect(err).NotTo(HaveOccurred())
	return path
}

// randomInstance renders a reproducible instance in the input file format.
func randomInstance(seed int64, videos, endpoints, requests, caches, capacity int) string {
	rng := rand.New(rand.NewSource(seed))
	var b strings.Builder
	fmt.Fprintf(&b, "%d %d %d %d %d\n", videos, endpoints, requests, caches, capacity)
	sizes := make([]string, videos)
	for i := range sizes {
		sizes[i] = fmt.Sprint(10 + rng.Intn(60))
	}
	b.WriteString(strings.Join(sizes, " ") + "\n")
	for e := 0; e < endpoints; e++ {
		dc := 500 + rng.Intn(1000)
		var links []string
		for c := 0; c < caches; c++ {
			if rng.Intn(3) > 0 {
				links = append(links, fmt.Sprintf("%d %d", c, 50+rng.Intn(dc)))
			}
		}
		fmt.Fprintf(&b, "%d %d\n", dc, len(links))
		for _, l := range links {
			b.WriteString(l + "\n")
		}
	}
	for r := 0; r < requests; r++ {
		fmt.Fprintf(&b, "%d %d %d\n", rng.Intn(videos), rng.Intn(endpoints), 1+rng.Intn(2000))
	}
	return b.String()
}

var _ = Describe("Placement runs", func() {
	var (
		ctx context.Context
		dir string
	)

	BeforeEach(func() {
		ctx = logr.NewContext(context.Background(), logging.Log)
		dir = GinkgoT().TempDir()
	})

	run := func(args ...string) (*optimizer.Result, error) {
		cfg, err := config.Load(append([]string{"--backend", "branchbound"}, args...))
		Expect(err).NotTo(HaveOccurred())
		return optimizer.NewOptimizer(cfg, nil).Run(ctx)
	}

	readOutput := func(path string) *core.Placement {
		f, err := os.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		p, err := output.Read(f)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	DescribeTable("fixtures",
		func(name string, wantObjective float64, wantOutput string) {
			out := filepath.Join(dir, "videos.out")
			res, err := run(fixture(name), "-o", out, "--gap", "0")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Solve.Status).To(Equal(solver.StatusOptimal))
			Expect(res.Solve.Objective).To(BeNumerically("~", wantObjective, 1e-6))

			b, err := os.ReadFile(out)
			Expect(err).NotTo(HaveOccurred())
			if wantOutput != "" {
				Expect(string(b)).To(Equal(wantOutput))
			}
			Expect(saturation.Verify(res.Instance, readOutput(out))).To(Succeed())
		},
		Entry("single cached video", "single_video.in", 90000.0, "1\n0 0\n"),
		Entry("video larger than the cache", "capacity_too_small.in", 0.0, "0\n"),
		Entry("cache no faster than the data center", "slow_cache.in", 0.0, "0\n"),
		Entry("contest example", "example.in", 2250000.0, ""),
	)

	It("builds no assignment variable for a request without a faster cache", func() {
		res, err := run(fixture("slow_cache.in"), "-o", filepath.Join(dir, "videos.out"))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Formulation.Stats().XVars).To(BeZero())
		Expect(res.Formulation.Stats().ExcludedRequests).To(Equal(1))
		Expect(res.Formulation.Stats().OneCacheConstraints).To(BeZero())
	})

	It("scores the contest example", func() {
		out := filepath.Join(dir, "videos.out")
		res, err := run(fixture("example.in"), "-o", out, "--profiles-file", fixture("profiles.yaml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Spec.OptimalityGap).NotTo(BeNil())
		Expect(*res.Spec.OptimalityGap).To(BeZero())
		Expect(res.Spec.TimeLimit.String()).To(Equal("30s"))

		inst, err := dataset.ParseFile(fixture("example.in"))
		Expect(err).NotTo(HaveOccurred())
		Expect(saturation.Score(inst, readOutput(out)).Points).To(Equal(int64(562500)))
	})

	Context("with a generated instance", func() {
		var input string

		BeforeEach(func() {
			input = filepath.Join(dir, "generated.in")
			Expect(os.WriteFile(input, []byte(randomInstance(7, 8, 3, 12, 2, 100)), 0o600)).To(Succeed())
		})

		It("writes a placement that respects every invariant", func() {
			out := filepath.Join(dir, "videos.out")
			res, err := run(input, "-o", out, "--gap", "0")
			Expect(err).NotTo(HaveOccurred())

			written := readOutput(out)
			Expect(written.Caches).To(Equal(res.Placement.Caches))
			Expect(saturation.Verify(res.Instance, written)).To(Succeed())
			Expect(saturation.VerifyCredits(written, res.Formulation.Credited(res.Solve))).To(Succeed())

			// Serving every request from its best cache can only beat the credited saving.
			score := saturation.Score(res.Instance, written)
			Expect(float64(score.TimeSaved)).To(BeNumerically(">=", res.Solve.Objective-1e-6))
		})

		It("never does better with less time", func() {
			full, err := run(input, "-o", filepath.Join(dir, "full.out"), "--gap", "0")
			Expect(err).NotTo(HaveOccurred())
			Expect(full.Solve.Status).To(Equal(solver.StatusOptimal))

			short, err := run(input, "-o", filepath.Join(dir, "short.out"), "--gap", "0", "--time-limit", "1ns")
			Expect(err).NotTo(HaveOccurred())
			Expect(short.Solve.HasSolution()).To(BeTrue())
			Expect(short.Solve.Objective).To(BeNumerically("<=", full.Solve.Objective+1e-6))

			again, err := run(input, "-o", filepath.Join(dir, "again.out"), "--gap", "0")
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Solve.Objective).To(BeNumerically("~", full.Solve.Objective, 1e-6))
		})
	})
})
