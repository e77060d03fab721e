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

// Package logging builds the logr.Logger used across the optimizer, backed by zap.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logr.Logger.V.
const (
	DEBUG = 1
	TRACE = 2
)

// Log is the process-wide logger. It discards everything until SetLogger is called.
var Log = logr.Discard()

// SetLogger replaces the process-wide logger.
func SetLogger(l logr.Logger) {
	Log = l
}

// Options configures NewLogger.
type Options struct {
	// Level is one of "info", "debug" or "trace".
	Level string
	// Development switches to the human-readable console encoder.
	Development bool
	// Output receives the log lines; stderr when nil.
	Output io.Writer
}

// ParseLevel maps a level name to a logr verbosity.
func ParseLevel(level string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return 0, nil
	case "debug":
		return DEBUG, nil
	case "trace":
		return TRACE, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want info, debug or trace)", level)
	}
}

// NewLogger creates a zap-backed logr.Logger.
func NewLogger(opts Options) (logr.Logger, error) {
	verbosity, err := ParseLevel(opts.Level)
	if err != nil {
		return logr.Discard(), err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if opts.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	// logr V(n) maps to zap level -n.
	level := zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)
	return zapr.NewLogger(zap.New(core)), nil
}

// NewTestLogger installs a development logger at TRACE verbosity writing to stderr.
func NewTestLogger() logr.Logger {
	l, _ := NewLogger(Options{Level: "trace", Development: true})
	SetLogger(l)
	return l
}
