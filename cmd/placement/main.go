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

// Command placement decides which videos to store on which cache servers so that
// the total latency saved over all requests is maximal.
//
//	placement [flags] <instance-file>
//
// Exit codes: 0 on success and when no feasible placement exists (nothing is
// written), 1 on solve or write failures, 2 on invalid configuration, 3 on a
// missing or malformed instance file, 4 when the solver backend is unavailable.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"

	"github.com/llm-d/cache-placement-optimizer/internal/config"
	"github.com/llm-d/cache-placement-optimizer/internal/dataset"
	"github.com/llm-d/cache-placement-optimizer/internal/logging"
	"github.com/llm-d/cache-placement-optimizer/internal/optimizer"
	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

const (
	exitOK = iota
	exitFailure
	exitConfig
	exitInput
	exitSolverUnavailable
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		if config.IsHelp(err) {
			return exitOK
		}
		fmt.Fprintf(stderr, "placement: %v\n", err)
		return exitConfig
	}

	logger, err := logging.NewLogger(logging.Options{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Format == "console",
		Output:      stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "placement: failed to initialize logger: %v\n", err)
		return exitConfig
	}
	logging.SetLogger(logger)
	ctx = logr.NewContext(ctx, logger)

	profiles, err := config.LoadSolverProfiles(cfg.ProfilesFile)
	if err != nil {
		logger.Error(err, "Failed to load solver profiles", "path", cfg.ProfilesFile)
		return exitConfig
	}

	opt := optimizer.NewOptimizer(cfg, profiles)
	_, err = opt.Run(ctx)
	return exitCode(logger, cfg, err)
}

func exitCode(logger logr.Logger, cfg *config.Config, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, solver.ErrNoSolutionFound):
		logger.Info("Solver found no feasible placement", "output", cfg.Output)
		return exitOK
	case errors.Is(err, optimizer.ErrInvalidInput):
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Error(err, "Instance file not found, check the input path", "input", cfg.Input)
		case errors.Is(err, dataset.ErrMalformedInput):
			logger.Error(err, "Instance file is malformed", "input", cfg.Input)
		default:
			logger.Error(err, "Failed to read instance file", "input", cfg.Input)
		}
		return exitInput
	case errors.Is(err, solver.ErrSolverUnavailable):
		logger.Error(err, "Solver backend unavailable, try --backend branchbound", "backend", cfg.Solver.Backend)
		return exitSolverUnavailable
	default:
		logger.Error(err, "Placement run failed")
		return exitFailure
	}
}
