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
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/llm-d/cache-placement-optimizer/api/v1alpha1"
	"github.com/llm-d/cache-placement-optimizer/internal/config"
	"github.com/llm-d/cache-placement-optimizer/internal/formulation"
)

// report assembles the run report from whatever res holds.
func (o *Optimizer) report(res *Result) *v1alpha1.PlacementReport {
	r := v1alpha1.NewPlacementReport(o.cfg.Dataset(), o.runID)
	now := metav1.NewTime(o.now())
	r.CreationTimestamp = now
	r.Status.CompletionTime = &now

	cfg := res.Spec.SolverConfig()
	r.Spec = v1alpha1.PlacementReportSpec{
		Input:  o.cfg.Input,
		Output: o.cfg.Output,
		Solver: v1alpha1.SolverSettings{
			Backend:       string(res.Spec.Backend),
			OptimalityGap: cfg.OptimalityGap,
			TimeLimit:     metav1.Duration{Duration: cfg.TimeLimit},
		},
	}
	if res.Instance != nil {
		r.Spec.Params = res.Instance.Params
	}

	if res.Formulation != nil {
		stats := res.Formulation.Stats()
		r.Status.Model = v1alpha1.ModelSummary{
			Name:                formulation.ModelName,
			StorageVariables:    stats.YVars,
			AssignmentVariables: stats.XVars,
			CapacityConstraints: stats.CapacityConstraints,
			LinkConstraints:     stats.LinkConstraints,
			OneCacheConstraints: stats.OneCacheConstraints,
			ExcludedRequests:    stats.ExcludedRequests,
		}
	}

	if s := res.Solve; s != nil {
		r.Status.Solve = v1alpha1.SolveSummary{
			Status:    s.Status.String(),
			Objective: s.Objective,
			RunTime:   metav1.Duration{Duration: s.RunTime},
			Nodes:     s.Nodes,
		}
		if !math.IsNaN(s.Bound) {
			r.Status.Solve.Bound = ptr.To(s.Bound)
		}
		if gap := s.Gap(); !math.IsNaN(gap) {
			r.Status.Solve.Gap = ptr.To(gap)
		}
	}

	if res.Placement == nil {
		return r
	}
	r.Status.Phase = v1alpha1.PhaseSucceeded
	r.Status.Placement = res.Placement.Caches

	if u := res.Utilization; u != nil {
		summary := &v1alpha1.UtilizationSummary{
			UsedCaches:      u.UsedCaches,
			SaturatedCaches: u.SaturatedCaches,
			StoredVideos:    u.StoredVideos,
			TotalUsed:       u.TotalUsed,
			TotalCapacity:   u.TotalCapacity,
			MeanUtilization: u.MeanUtilization,
		}
		for _, c := range u.Caches {
			if c.Videos == 0 {
				continue
			}
			summary.Caches = append(summary.Caches, v1alpha1.CacheUtilization{
				Cache:       c.Cache,
				Videos:      c.Videos,
				Used:        c.Used,
				Utilization: c.Utilization,
			})
		}
		r.Status.Utilization = summary
	}
	if s := res.Score; s != nil {
		r.Status.Score = &v1alpha1.ScoreSummary{
			TimeSaved:       s.TimeSaved,
			Requests:        s.Requests,
			ServedFromCache: s.ServedFromCache,
			Points:          s.Points,
		}
	}
	return r
}

// EncodeReport renders r in the given report format.
func EncodeReport(r *v1alpha1.PlacementReport, format string) ([]byte, error) {
	switch format {
	case config.ReportFormatYAML:
		return yaml.Marshal(r)
	case config.ReportFormatJSON, "":
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

func (o *Optimizer) writeReport(r *v1alpha1.PlacementReport) error {
	if o.cfg.ReportFile == "" {
		return nil
	}
	b, err := EncodeReport(r, o.cfg.ReportFormat)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(o.cfg.ReportFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(o.cfg.ReportFile, b, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
