// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package messaging

import "context"

// Publisher specifies message publishing API.
type Publisher interface {
	// Publish publishes a text payload to the given topic. The retain flag
	// instructs the broker to keep the last value for new subscribers.
	Publish(ctx context.Context, topic, payload string, retain bool) error

	// Close gracefully closes message publisher's connection.
	Close() error
}
