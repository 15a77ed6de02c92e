/*
Copyright 2025 The llm-d Authors

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

// Package logging configures the process-wide logr logger used through
// controller-runtime's ctrl.Log and ctrl.LoggerFrom.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	uberzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Verbosity levels passed to logger.V().
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// ParseLevel maps a level name (info, debug, trace) or a number to a verbosity.
func ParseLevel(level string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	case "trace":
		return TRACE, nil
	}
	var v int
	if _, err := fmt.Sscanf(level, "%d", &v); err != nil || v < 0 {
		return 0, fmt.Errorf("invalid log level %q", level)
	}
	return v, nil
}

// NewLogger builds a zap-backed logr.Logger writing to w at the given verbosity.
func NewLogger(w io.Writer, verbosity int, development bool) logr.Logger {
	opts := zap.Options{
		Development: development,
		Level:       uberzap.NewAtomicLevelAt(zapcore.Level(-verbosity)),
		TimeEncoder: zapcore.ISO8601TimeEncoder,
		DestWriter:  w,
	}
	return zap.New(zap.UseFlagOptions(&opts))
}

// Setup installs a logger for the given level name as the process-wide logger.
func Setup(level string, development bool) (logr.Logger, error) {
	verbosity, err := ParseLevel(level)
	if err != nil {
		return logr.Discard(), err
	}
	logger := NewLogger(os.Stderr, verbosity, development)
	ctrl.SetLogger(logger)
	return logger, nil
}

// NewTestLogger installs a development logger for test suites.
func NewTestLogger() {
	ctrl.SetLogger(NewLogger(os.Stderr, DEBUG, true))
}
