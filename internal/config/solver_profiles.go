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

package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"

	"github.com/llm-d/cache-placement-optimizer/internal/logging"
	pkgconfig "github.com/llm-d/cache-placement-optimizer/pkg/config"
)

// DefaultProfileKey is the profiles file entry applied to every dataset.
const DefaultProfileKey = "default"

// SolverProfile overrides solver settings for one dataset. Unset fields inherit.
type SolverProfile struct {
	// Dataset is the instance name this profile applies to (only used in override entries).
	Dataset string `yaml:"dataset,omitempty" json:"dataset,omitempty"`

	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`

	// OptimalityGap is a pointer so that an explicit 0 (prove optimality) can be told apart from unset.
	OptimalityGap *float64 `yaml:"optimalityGap,omitempty" json:"optimalityGap,omitempty"`

	// TimeLimit is a duration string (e.g. "90s", "20m").
	TimeLimit string `yaml:"timeLimit,omitempty" json:"timeLimit,omitempty"`
}

// SolverProfileData maps dataset names (and DefaultProfileKey) to profiles.
type SolverProfileData map[string]SolverProfile

// Validate checks for invalid profile values.
func (p *SolverProfile) Validate() error {
	spec := pkgconfig.SolverSpec{Backend: pkgconfig.Backend(p.Backend), OptimalityGap: p.OptimalityGap}
	if p.TimeLimit != "" {
		d, err := time.ParseDuration(p.TimeLimit)
		if err != nil {
			return fmt.Errorf("invalid timeLimit: %w", err)
		}
		spec.TimeLimit = &d
	}
	if errs := spec.Validate(nil); len(errs) > 0 {
		return errs.ToAggregate()
	}
	return nil
}

// LoadSolverProfiles reads a profiles file. An empty path yields no profiles.
func LoadSolverProfiles(path string) (SolverProfileData, error) {
	if path == "" {
		return SolverProfileData{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return ParseSolverProfiles(data)
}

// ParseSolverProfiles parses a YAML mapping of entry names to profiles:
//   - "default": settings applied to every dataset
//   - "<entry-name>": settings for the dataset named in its dataset field
//
// Invalid entries are logged and skipped. When two entries name the same dataset
// the first entry in key order wins.
func ParseSolverProfiles(data []byte) (SolverProfileData, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(SolverProfileData)
	datasetToKey := make(map[string]string)
	for _, key := range keys {
		node := raw[key]

		var profile SolverProfile
		if err := node.Decode(&profile); err != nil {
			logging.Log.Info("Failed to parse solver profile entry, skipping",
				"key", key,
				"error", err)
			continue
		}

		if err := profile.Validate(); err != nil {
			logging.Log.Info("Invalid solver profile entry, skipping",
				"key", key,
				"error", err)
			continue
		}

		if key == DefaultProfileKey {
			out[DefaultProfileKey] = profile
			continue
		}

		if profile.Dataset == "" {
			logging.Log.Info("Skipping solver profile without dataset field",
				"key", key)
			continue
		}

		if winner, exists := datasetToKey[profile.Dataset]; exists {
			logging.Log.Info("Duplicate dataset in solver profiles - first key wins",
				"dataset", profile.Dataset,
				"winningKey", winner,
				"duplicateKey", key)
			continue
		}
		datasetToKey[profile.Dataset] = key
		out[profile.Dataset] = profile
	}

	logging.Log.V(logging.DEBUG).Info("Parsed solver profiles",
		"datasetCount", len(datasetToKey),
		"hasDefault", out.hasDefault())

	return out, nil
}

func (data SolverProfileData) hasDefault() bool {
	_, ok := data[DefaultProfileKey]
	return ok
}

// Apply overlays the default profile and then the dataset's profile on spec.
func (data SolverProfileData) Apply(dataset string, spec pkgconfig.SolverSpec) pkgconfig.SolverSpec {
	if p, ok := data[DefaultProfileKey]; ok {
		spec = p.overlay(spec)
	}
	if dataset == DefaultProfileKey {
		return spec
	}
	if p, ok := data[dataset]; ok {
		spec = p.overlay(spec)
	}
	return spec
}

func (p SolverProfile) overlay(spec pkgconfig.SolverSpec) pkgconfig.SolverSpec {
	if p.Backend != "" {
		spec.Backend = pkgconfig.Backend(p.Backend)
	}
	if p.OptimalityGap != nil {
		spec.OptimalityGap = ptr.To(*p.OptimalityGap)
	}
	if p.TimeLimit != "" {
		if d, err := time.ParseDuration(p.TimeLimit); err == nil {
			spec.TimeLimit = ptr.To(d)
		}
	}
	return spec
}
