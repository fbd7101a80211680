// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package api holds the service decorators and the HTTP surface of the
// bridge (version, health, Prometheus metrics).
package api

import (
	"net/http"

	"github.com/go-zoo/bone"
	bridge "github.com/n3bkv/WaveNode-to-MQTT"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MakeHandler returns a HTTP handler for API endpoints.
func MakeHandler(svcName string) http.Handler {
	r := bone.New()
	r.GetFunc("/version", bridge.Health(svcName))
	r.GetFunc("/health", bridge.Health(svcName))
	r.Handle("/metrics", promhttp.Handler())

	return r
}
