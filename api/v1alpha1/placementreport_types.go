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

// Package v1alpha1 contains the versioned run report written by the placement optimizer.
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/llm-d/cache-placement-optimizer/pkg/core"
)

const (
	// GroupVersion is the apiVersion of every report.
	GroupVersion = "cacheplan.llm-d.ai/v1alpha1"
	// Kind is the kind of every report.
	Kind = "PlacementReport"

	// DatasetLabel carries the dataset name on the report metadata.
	DatasetLabel = "cacheplan.llm-d.ai/dataset"
)

// ReportPhase is the final state of a run.
type ReportPhase string

const (
	// PhaseSucceeded means a placement was found, verified and written.
	PhaseSucceeded ReportPhase = "Succeeded"
	// PhaseNoSolution means the solver returned no feasible assignment; no solution file was written.
	PhaseNoSolution ReportPhase = "NoSolution"
)

// PlacementReport describes one optimizer run: its inputs, the model size,
// the solver outcome and the resulting placement.
type PlacementReport struct {
	metav1.TypeMeta `json:",inline"`

	// Name is the dataset name, UID the run id.
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PlacementReportSpec   `json:"spec"`
	Status PlacementReportStatus `json:"status,omitempty"`
}

// PlacementReportSpec records what the run was asked to do.
type PlacementReportSpec struct {
	// Input is the instance file.
	Input string `json:"input"`

	// Output is the solution file.
	Output string `json:"output"`

	// Params are the announced instance parameters.
	Params core.Params `json:"params"`

	Solver SolverSettings `json:"solver"`
}

// SolverSettings are the effective solver settings after config, profile and flag merging.
type SolverSettings struct {
	// Backend is the solver backend name (highs or branchbound).
	Backend string `json:"backend"`

	// OptimalityGap is the relative optimality gap.
	OptimalityGap float64 `json:"optimalityGap"`

	// TimeLimit is the solver wall-clock limit; zero means unlimited.
	TimeLimit metav1.Duration `json:"timeLimit"`
}

// PlacementReportStatus records what the run produced.
type PlacementReportStatus struct {
	Phase ReportPhase `json:"phase"`

	// CompletionTime is when the run finished.
	// +optional
	CompletionTime *metav1.Time `json:"completionTime,omitempty"`

	Model ModelSummary `json:"model"`

	Solve SolveSummary `json:"solve"`

	// Placement lists the non-empty caches and their videos.
	// +optional
	Placement []core.CacheContent `json:"placement,omitempty"`

	// Utilization is only set when a placement was found.
	// +optional
	Utilization *UtilizationSummary `json:"utilization,omitempty"`

	// Score is only set when a placement was found.
	// +optional
	Score *ScoreSummary `json:"score,omitempty"`
}

// ModelSummary is the size of the built MILP.
type ModelSummary struct {
	Name                string `json:"name"`
	StorageVariables    int    `json:"storageVariables"`
	AssignmentVariables int    `json:"assignmentVariables"`
	CapacityConstraints int    `json:"capacityConstraints"`
	LinkConstraints     int    `json:"linkConstraints"`
	OneCacheConstraints int    `json:"oneCacheConstraints"`
	// ExcludedRequests counts request descriptions without any faster cache.
	ExcludedRequests int `json:"excludedRequests"`
}

// SolveSummary is the solver outcome.
type SolveSummary struct {
	// Status is one of optimal, feasible or no_solution.
	Status string `json:"status"`

	Objective float64 `json:"objective"`

	// Bound is the best proven objective bound, when the backend reports one.
	// +optional
	Bound *float64 `json:"bound,omitempty"`

	// Gap is the relative distance between Objective and Bound.
	// +optional
	Gap *float64 `json:"gap,omitempty"`

	RunTime metav1.Duration `json:"runTime"`

	// +optional
	Nodes int64 `json:"nodes,omitempty"`
}

// UtilizationSummary is the capacity consumption of the placement.
type UtilizationSummary struct {
	UsedCaches      int     `json:"usedCaches"`
	SaturatedCaches int     `json:"saturatedCaches"`
	StoredVideos    int     `json:"storedVideos"`
	TotalUsed       int64   `json:"totalUsed"`
	TotalCapacity   int64   `json:"totalCapacity"`
	MeanUtilization float64 `json:"meanUtilization"`

	// Caches has one entry per cache holding at least one video.
	Caches []CacheUtilization `json:"caches,omitempty"`
}

// CacheUtilization is the capacity consumption of one cache.
type CacheUtilization struct {
	Cache       int     `json:"cache"`
	Videos      int     `json:"videos"`
	Used        int64   `json:"used"`
	Utilization float64 `json:"utilization"`
}

// ScoreSummary is the contest score of the placement.
type ScoreSummary struct {
	TimeSaved       int64 `json:"timeSaved"`
	Requests        int64 `json:"requests"`
	ServedFromCache int   `json:"servedFromCache"`
	Points          int64 `json:"points"`
}

// NewPlacementReport returns a report with its type metadata set.
func NewPlacementReport(dataset, runID string) *PlacementReport {
	return &PlacementReport{
		TypeMeta: metav1.TypeMeta{APIVersion: GroupVersion, Kind: Kind},
		ObjectMeta: metav1.ObjectMeta{
			Name:   dataset,
			UID:    types.UID(runID),
			Labels: map[string]string{DatasetLabel: dataset},
		},
		Status: PlacementReportStatus{Phase: PhaseNoSolution},
	}
}
