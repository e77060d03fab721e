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

package saturation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/cache-placement-optimizer/internal/formulation"
	"github.com/llm-d/cache-placement-optimizer/internal/saturation"
	"github.com/llm-d/cache-placement-optimizer/pkg/core"
)

func exampleInstance() *core.Instance {
	return &core.Instance{
		Params:     core.Params{VideoCount: 5, EndpointCount: 2, RequestCount: 4, CacheCount: 3, CacheCapacity: 100},
		VideoSizes: []int{50, 50, 80, 30, 110},
		Endpoints: []core.Endpoint{
			{DataCenterLatency: 1000, Caches: []core.CacheLink{{Cache: 0, Latency: 100}, {Cache: 1, Latency: 300}, {Cache: 2, Latency: 200}}},
			{DataCenterLatency: 500},
		},
		Requests: []core.Request{
			{Video: 3, Endpoint: 0, Count: 1500},
			{Video: 0, Endpoint: 1, Count: 1000},
			{Video: 4, Endpoint: 0, Count: 500},
			{Video: 1, Endpoint: 0, Count: 1000},
		},
	}
}

func examplePlacement() *core.Placement {
	return &core.Placement{Caches: []core.CacheContent{
		{Cache: 0, Videos: []int{2}},
		{Cache: 1, Videos: []int{1, 3}},
		{Cache: 2, Videos: []int{0, 1}},
	}}
}

var _ = Describe("Saturation", func() {
	var inst *core.Instance

	BeforeEach(func() {
		inst = exampleInstance()
	})

	Context("Analyze", func() {
		It("reports per-cache usage and totals", func() {
			r := saturation.Analyze(inst, examplePlacement())

			Expect(r).To(BeAssignableToTypeOf(saturation.Report{}))
			Expect(r.Caches).To(HaveLen(3))
			Expect(r.Caches[0]).To(Equal(saturation.CacheUsage{Cache: 0, Videos: 1, Used: 80, Capacity: 100, Utilization: 0.8}))
			Expect(r.Caches[2].Utilization).To(BeNumerically("==", 1.0))
			Expect(r.UsedCaches).To(Equal(3))
			Expect(r.SaturatedCaches).To(Equal(1))
			Expect(r.StoredVideos).To(Equal(5))
			Expect(r.TotalUsed).To(Equal(int64(260)))
			Expect(r.TotalCapacity).To(Equal(int64(300)))
			Expect(r.MeanUtilization).To(BeNumerically("~", 260.0/300.0, 1e-12))
		})

		It("lists empty caches with zero usage", func() {
			r := saturation.Analyze(inst, &core.Placement{})

			Expect(r.Caches).To(HaveLen(3))
			Expect(r.UsedCaches).To(BeZero())
			Expect(r.MeanUtilization).To(BeZero())
		})

		It("handles zero capacity", func() {
			inst.CacheCapacity = 0
			r := saturation.Analyze(inst, &core.Placement{})

			Expect(r.Caches[0].Utilization).To(BeZero())
			Expect(r.MeanUtilization).To(BeZero())
		})
	})

	Context("Verify", func() {
		It("accepts a valid placement", func() {
			Expect(saturation.Verify(inst, examplePlacement())).To(Succeed())
		})

		It("accepts an empty placement", func() {
			Expect(saturation.Verify(inst, &core.Placement{})).To(Succeed())
		})

		DescribeTable("rejects invalid placements",
			func(caches []core.CacheContent, wantField string) {
				err := saturation.Verify(inst, &core.Placement{Caches: caches})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring(wantField))
			},
			Entry("capacity exceeded", []core.CacheContent{{Cache: 0, Videos: []int{2, 3}}}, "caches[0].videos"),
			Entry("cache out of range", []core.CacheContent{{Cache: 3, Videos: []int{0}}}, "caches[0].cache"),
			Entry("cache listed twice", []core.CacheContent{{Cache: 1, Videos: []int{0}}, {Cache: 1, Videos: []int{3}}}, "caches[1].cache"),
			Entry("videos out of order", []core.CacheContent{{Cache: 0, Videos: []int{3, 1}}}, "caches[0].videos[1]"),
			Entry("video out of range", []core.CacheContent{{Cache: 0, Videos: []int{5}}}, "caches[0].videos[0]"),
			Entry("empty cache listed", []core.CacheContent{{Cache: 0}}, "caches[0].videos"),
		)
	})

	Context("VerifyCredits", func() {
		It("accepts credits served by stored videos", func() {
			credited := []formulation.Edge{
				{Request: 0, Cache: 1, Video: 3, Saving: 1050000},
				{Request: 3, Cache: 2, Video: 1, Saving: 800000},
			}
			Expect(saturation.VerifyCredits(examplePlacement(), credited)).To(Succeed())
		})

		It("rejects a credit on a cache without the video", func() {
			credited := []formulation.Edge{{Request: 0, Cache: 0, Video: 3}}
			err := saturation.VerifyCredits(examplePlacement(), credited)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("does not store video 3"))
		})

		It("rejects a request credited twice", func() {
			credited := []formulation.Edge{
				{Request: 3, Cache: 1, Video: 1},
				{Request: 3, Cache: 2, Video: 1},
			}
			err := saturation.VerifyCredits(examplePlacement(), credited)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("already credited to cache 1"))
		})
	})

	Context("Score", func() {
		It("scores the contest example at 462500 points", func() {
			s := saturation.Score(inst, examplePlacement())

			Expect(s).To(Equal(saturation.Scoring{
				TimeSaved:       1850000,
				Requests:        4000,
				ServedFromCache: 2,
				Points:          462500,
			}))
		})

		It("scores the optimal placement", func() {
			p := &core.Placement{Caches: []core.CacheContent{{Cache: 0, Videos: []int{1, 3}}}}
			Expect(saturation.Score(inst, p).Points).To(Equal(int64(562500)))
		})

		It("scores zero without requests", func() {
			inst.RequestCount = 0
			inst.Requests = nil
			Expect(saturation.Score(inst, examplePlacement())).To(Equal(saturation.Scoring{}))
		})
	})
})
