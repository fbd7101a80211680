// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mocks contains hand-rolled test doubles for the bridge.
package mocks

import (
	"context"
	"sync"

	"github.com/n3bkv/WaveNode-to-MQTT/pkg/messaging"
)

// Message is one publish accepted by the mock publisher.
type Message struct {
	Topic   string
	Payload string
	Retain  bool
}

var _ messaging.Publisher = (*Publisher)(nil)

// Publisher is a messaging.Publisher recording every publish it accepts.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

// NewPublisher returns mock publisher instance.
func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(_ context.Context, topic, payload string, retain bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, Message{Topic: topic, Payload: payload, Retain: retain})
	return nil
}

func (p *Publisher) Close() error {
	return nil
}

// SetError makes every subsequent publish fail with err.
func (p *Publisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Messages returns a snapshot of the accepted publishes.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// Reset drops all recorded publishes.
func (p *Publisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = nil
}
