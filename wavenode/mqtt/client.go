// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/n3bkv/WaveNode-to-MQTT/pkg/errors"
)

// Publishes are at-most-once best-effort.
const qos = 0

// ClientConfig holds the broker connection settings.
type ClientConfig struct {
	URL      string
	Username string
	Password string
	ClientID string
	Timeout  time.Duration
}

var _ Client = (*pahoClient)(nil)

type pahoClient struct {
	client  mqtt.Client
	timeout time.Duration
	logger  *slog.Logger
	onLost  func(error)
}

// NewClient returns a paho-backed broker client. Automatic reconnection
// is disabled; the Publisher owns the reconnect policy.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	c := &pahoClient{
		timeout: cfg.Timeout,
		logger:  logger,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if c.onLost != nil {
			c.onLost(err)
		}
	})

	c.client = mqtt.NewClient(opts)
	return c
}

func (c *pahoClient) Connect() error {
	token := c.client.Connect()
	if token.WaitTimeout(c.timeout) && token.Error() != nil {
		return token.Error()
	}
	if !c.client.IsConnected() {
		return errors.ErrConnect
	}
	return nil
}

// Publish is fire-and-forget from the dispatch path's perspective: the
// delivery token is awaited on a background goroutine and failures are
// only logged.
func (c *pahoClient) Publish(topic, payload string, retain bool) error {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		if token.WaitTimeout(c.timeout) && token.Error() != nil {
			c.logger.Warn(fmt.Sprintf("publish to %s failed: %s", topic, token.Error()))
		}
	}()
	return nil
}

func (c *pahoClient) SetConnectionLostHandler(handler func(error)) {
	c.onLost = handler
}

func (c *pahoClient) Disconnect(quiesce uint) {
	c.client.Disconnect(quiesce)
}
