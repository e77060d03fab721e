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

// Package config loads the run configuration of the placement optimizer.
//
// Sources, from highest to lowest priority:
//  1. Command-line flags
//  2. Per-dataset solver profiles (solver settings only)
//  3. Environment variables prefixed with CACHEPLAN_ (e.g. CACHEPLAN_SOLVER_TIME_LIMIT)
//  4. YAML config file (--config or CACHEPLAN_CONFIG)
//  5. Default values
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"

	"github.com/llm-d/cache-placement-optimizer/internal/logging"
	pkgconfig "github.com/llm-d/cache-placement-optimizer/pkg/config"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CACHEPLAN"

// Report formats.
const (
	ReportFormatJSON = "json"
	ReportFormatYAML = "yaml"
)

// Config holds all configuration of a run.
type Config struct {
	Input        string        `mapstructure:"input"`
	Output       string        `mapstructure:"output"`
	MPSFile      string        `mapstructure:"mps_file"`
	ReportFile   string        `mapstructure:"report_file"`
	ReportFormat string        `mapstructure:"report_format"`
	MetricsFile  string        `mapstructure:"metrics_file"`
	ProfilesFile string        `mapstructure:"profiles_file"`
	Solver       SolverConfig  `mapstructure:"solver"`
	Logging      LoggingConfig `mapstructure:"logging"`

	// flagged holds the viper keys set explicitly on the command line.
	flagged map[string]bool
}

// SolverConfig holds backend selection and termination parameters.
type SolverConfig struct {
	Backend       string        `mapstructure:"backend"`
	OptimalityGap float64       `mapstructure:"optimality_gap"`
	TimeLimit     time.Duration `mapstructure:"time_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command-line flags to viper keys.
var flagKeys = map[string]string{
	"input":         "input",
	"output":        "output",
	"mps-file":      "mps_file",
	"report-file":   "report_file",
	"report-format": "report_format",
	"metrics-file":  "metrics_file",
	"profiles-file": "profiles_file",
	"backend":       "solver.backend",
	"gap":           "solver.optimality_gap",
	"time-limit":    "solver.time_limit",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
}

// NewFlagSet declares every command-line flag.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "YAML config file")
	fs.StringP("input", "i", "", "instance file (may also be given as the first argument)")
	fs.StringP("output", "o", "videos.out", "solution file")
	fs.String("mps-file", "", "write the model in MPS format to this file before solving")
	fs.String("report-file", "", "write a run report to this file")
	fs.String("report-format", ReportFormatJSON, "run report format (json or yaml)")
	fs.String("metrics-file", "", "write run metrics in Prometheus text format to this file")
	fs.String("profiles-file", "", "YAML file of per-dataset solver profiles")
	fs.String("backend", string(pkgconfig.DefaultBackend), "solver backend (highs or branchbound)")
	fs.Float64("gap", solver.DefaultOptimalityGap, "relative optimality gap")
	fs.Duration("time-limit", solver.DefaultTimeLimit, "solver wall-clock limit (0 disables)")
	fs.String("log-level", "info", "log level (info, debug or trace)")
	fs.String("log-format", "json", "log format (json or console)")
	return fs
}

// Load parses args and merges flags, environment, config file and defaults.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("placement")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, _ := fs.GetString("config")
	if configPath == "" {
		configPath = v.GetString("config")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{flagged: map[string]bool{}}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	fs.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			cfg.flagged[key] = true
		}
	})

	if cfg.Input == "" && fs.NArg() > 0 {
		cfg.Input = fs.Arg(0)
		cfg.flagged["input"] = true
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output", "videos.out")
	v.SetDefault("report_format", ReportFormatJSON)

	v.SetDefault("solver.backend", string(pkgconfig.DefaultBackend))
	v.SetDefault("solver.optimality_gap", solver.DefaultOptimalityGap)
	v.SetDefault("solver.time_limit", solver.DefaultTimeLimit)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs field.ErrorList
	if c.Input == "" {
		errs = append(errs, field.Required(field.NewPath("input"), "an instance file is required"))
	}
	if c.Output == "" {
		errs = append(errs, field.Required(field.NewPath("output"), "a solution file is required"))
	}
	if c.ReportFormat != ReportFormatJSON && c.ReportFormat != ReportFormatYAML {
		errs = append(errs, field.NotSupported(field.NewPath("reportFormat"), c.ReportFormat,
			[]string{ReportFormatJSON, ReportFormatYAML}))
	}
	spec := c.baseSolverSpec()
	errs = append(errs, spec.Validate(field.NewPath("solver"))...)
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, field.Invalid(field.NewPath("logging", "level"), c.Logging.Level, err.Error()))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, field.NotSupported(field.NewPath("logging", "format"), c.Logging.Format,
			[]string{"json", "console"}))
	}
	if len(errs) == 0 {
		return nil
	}
	return errs.ToAggregate()
}

// Dataset returns the instance name used to select a solver profile: the input
// file name without directory and extension.
func (c *Config) Dataset() string {
	base := filepath.Base(c.Input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SolverSpec returns the effective solver settings. Profile values override the
// file, environment and defaults; explicit flags override profiles.
func (c *Config) SolverSpec(profiles SolverProfileData) (pkgconfig.SolverSpec, error) {
	spec := profiles.Apply(c.Dataset(), c.baseSolverSpec())
	if c.flagged["solver.backend"] {
		spec.Backend = pkgconfig.Backend(c.Solver.Backend)
	}
	if c.flagged["solver.optimality_gap"] {
		spec.OptimalityGap = ptr.To(c.Solver.OptimalityGap)
	}
	if c.flagged["solver.time_limit"] {
		spec.TimeLimit = ptr.To(c.Solver.TimeLimit)
	}
	if errs := spec.Validate(field.NewPath("solver")); len(errs) > 0 {
		return spec, errs.ToAggregate()
	}
	spec.Default()
	return spec, nil
}

func (c *Config) baseSolverSpec() pkgconfig.SolverSpec {
	return pkgconfig.SolverSpec{
		Backend:       pkgconfig.Backend(c.Solver.Backend),
		OptimalityGap: ptr.To(c.Solver.OptimalityGap),
		TimeLimit:     ptr.To(c.Solver.TimeLimit),
	}
}

// IsHelp reports whether err is the flag package's help request.
func IsHelp(err error) bool {
	return errors.Is(err, pflag.ErrHelp)
}
