// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"encoding/json"
	"net/http"
)

// Version of the bridge service.
const Version = "0.1.0"

// VersionInfo contains version endpoint response.
type VersionInfo struct {
	// Service contains service name.
	Service string `json:"service"`

	// Version contains service current version value.
	Version string `json:"version"`
}

// Health exposes an HTTP handler for retrieving service version and
// liveness.
func Health(service string) http.HandlerFunc {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		res := VersionInfo{service, Version}

		data, _ := json.Marshal(res)

		rw.Header().Set("Content-Type", "application/json")
		rw.Write(data)
	})
}
