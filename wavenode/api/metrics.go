// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

//go:build !test

package api

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/n3bkv/WaveNode-to-MQTT/wavenode"
)

var _ wavenode.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     wavenode.Service
}

// MetricsMiddleware instruments core service by tracking request count
// and latency.
func MetricsMiddleware(svc wavenode.Service, counter metrics.Counter, latency metrics.Histogram) wavenode.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Dispatch(ctx context.Context, frame wavenode.Frame) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "dispatch").Add(1)
		mm.latency.With("method", "dispatch").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Dispatch(ctx, frame)
}
