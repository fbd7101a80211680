// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package logger contains logger wrapper for the bridge services.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns JSON slog logger writing to w with the given level
// ("debug", "info", "warn" or "error").
func New(w io.Writer, levelText string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelText)); err != nil {
		return nil, err
	}

	logHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(logHandler), nil
}

// ExitWithError exits the process with the given code after all deferred
// cleanups have run. Intended to be deferred first in main.
func ExitWithError(exitCode *int) {
	os.Exit(*exitCode)
}
