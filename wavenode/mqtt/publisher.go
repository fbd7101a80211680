// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mqtt provides the MQTT broker publisher used by the bridge,
// including connection-state tracking and the reconnect loop.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/n3bkv/WaveNode-to-MQTT/pkg/errors"
	"github.com/n3bkv/WaveNode-to-MQTT/pkg/messaging"
)

// ConnState is the broker connection state owned by the publisher.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Client is the narrow broker-client surface the publisher drives. The
// production implementation wraps the paho client; tests inject fakes.
type Client interface {
	// Connect performs a single connection attempt.
	Connect() error

	// Publish sends a fire-and-forget publish.
	Publish(topic, payload string, retain bool) error

	// SetConnectionLostHandler registers the callback invoked on any
	// transport-reported disconnect. Must be called before Connect.
	SetConnectionLostHandler(func(error))

	// Disconnect closes the connection, waiting at most quiesce ms.
	Disconnect(quiesce uint)
}

var _ messaging.Publisher = (*Publisher)(nil)

// Publisher owns the broker connection. Publishes while not Connected
// are dropped without blocking; a lost connection is retried forever on
// a fixed backoff.
type Publisher struct {
	client  Client
	backoff time.Duration
	logger  *slog.Logger

	mu           sync.Mutex
	state        ConnState
	reconnecting bool
	lossPending  bool
	done         chan struct{}
	closeOnce    sync.Once
}

// NewPublisher returns a publisher in the Disconnected state. Call
// Connect to establish the connection and arm the reconnect loop.
func NewPublisher(client Client, reconnectBackoff time.Duration, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:  client,
		backoff: reconnectBackoff,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// State returns the current connection state.
func (p *Publisher) State() ConnState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connect performs the initial connection attempt. On failure the
// publisher stays Disconnected and the reconnect loop takes over; the
// returned error is informational and never fatal to dispatch.
func (p *Publisher) Connect() error {
	p.client.SetConnectionLostHandler(p.connectionLost)

	p.setState(Connecting)
	if err := p.client.Connect(); err != nil {
		p.setState(Disconnected)
		p.startReconnect()
		return errors.Wrap(errors.ErrConnect, err)
	}
	p.setState(Connected)
	p.logger.Info("connected to MQTT broker")
	return nil
}

// Publish forwards a payload to the broker. It returns immediately when
// the connection is down; the payload is dropped, not queued.
func (p *Publisher) Publish(_ context.Context, topic, payload string, retain bool) error {
	if p.State() != Connected {
		p.logger.Debug(fmt.Sprintf("dropping publish: %s", errors.ErrNotConnected), slog.String("topic", topic))
		return nil
	}
	if err := p.client.Publish(topic, payload, retain); err != nil {
		return errors.Wrap(errors.ErrPublish, err)
	}
	return nil
}

// Close tears down the reconnect loop and the broker connection.
// In-flight publishes may be lost; flush is best-effort.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.client.Disconnect(250)
		p.setState(Disconnected)
	})
	return nil
}

func (p *Publisher) connectionLost(err error) {
	p.logger.Warn(fmt.Sprintf("MQTT connection lost: %s", err))
	p.setState(Connecting)
	p.startReconnect()
}

// startReconnect launches the reconnect loop unless one is already
// running.
func (p *Publisher) startReconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reconnecting {
		// A loop is already running. Its current attempt may be about
		// to succeed, in which case this loss concerns the connection
		// it just made; flag it so the loop retries instead of
		// committing Connected and exiting.
		p.lossPending = true
		return
	}
	p.reconnecting = true
	go p.reconnectLoop()
}

// reconnectLoop waits the fixed backoff, then retries the connection,
// repeating until success or shutdown. The bridge never gives up: a
// loss reported while an attempt is settling keeps the loop running.
func (p *Publisher) reconnectLoop() {
	bo := backoff.NewConstantBackOff(p.backoff)
	for {
		select {
		case <-p.done:
			p.mu.Lock()
			p.reconnecting = false
			p.mu.Unlock()
			return
		case <-time.After(bo.NextBackOff()):
		}

		p.mu.Lock()
		p.state = Connecting
		p.lossPending = false
		p.mu.Unlock()

		if err := p.client.Connect(); err != nil {
			p.logger.Warn(fmt.Sprintf("MQTT reconnect failed: %s", err))
			p.setState(Disconnected)
			continue
		}

		p.mu.Lock()
		if p.lossPending {
			p.lossPending = false
			p.state = Disconnected
			p.mu.Unlock()
			p.logger.Warn("MQTT connection lost again before reconnect settled")
			continue
		}
		p.state = Connected
		p.reconnecting = false
		p.mu.Unlock()
		p.logger.Info("reconnected to MQTT broker")
		return
	}
}

func (p *Publisher) setState(s ConnState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}
