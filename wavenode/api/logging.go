// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

//go:build !test

package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/n3bkv/WaveNode-to-MQTT/wavenode"
)

var _ wavenode.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    wavenode.Service
}

// LoggingMiddleware adds logging facilities to the core service.
func LoggingMiddleware(svc wavenode.Service, logger *slog.Logger) wavenode.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Dispatch(ctx context.Context, frame wavenode.Frame) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("kind", uint64(frame.Kind)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Dispatch telemetry frame failed to complete successfully", args...)
			return
		}
		lm.logger.Debug("Dispatch telemetry frame completed successfully", args...)
	}(time.Now())

	return lm.svc.Dispatch(ctx, frame)
}
