// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package errors

var (
	// ErrConnect indicates failure to establish the broker connection.
	ErrConnect = New("failed to connect to message broker")

	// ErrPublish indicates failure to publish a message to the broker.
	ErrPublish = New("failed to publish message")

	// ErrNotConnected indicates a publish attempted while the broker
	// connection is down.
	ErrNotConnected = New("not connected to message broker")

	// ErrDiscovery indicates that no discovery strategy located a device
	// endpoint.
	ErrDiscovery = New("failed to discover device endpoint")

	// ErrMalformedFrame indicates a transport frame of unexpected size.
	ErrMalformedFrame = New("malformed telemetry frame")
)
