// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package udp

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/n3bkv/WaveNode-to-MQTT/pkg/errors"
	"github.com/n3bkv/WaveNode-to-MQTT/wavenode"
)

// Endpoint identifies a reachable device telemetry source.
type Endpoint struct {
	Addr *net.UDPAddr

	// Handle is the device-reported window handle, zero when the
	// strategy that found the endpoint has no handle information.
	Handle uint32
}

// Strategy is one way of locating the device endpoint. Strategies are
// tried in order; the first hit wins.
type Strategy interface {
	Discover(ctx context.Context) (Endpoint, bool)
}

// Chain tries its strategies in order and returns the first endpoint
// found.
type Chain struct {
	strategies []Strategy
}

// NewChain returns a discovery chain over the given strategies.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Discover returns the first endpoint any strategy locates, or
// ErrDiscovery when all strategies come up empty.
func (c *Chain) Discover(ctx context.Context) (Endpoint, error) {
	for _, s := range c.strategies {
		if ep, ok := s.Discover(ctx); ok {
			return ep, nil
		}
	}
	return Endpoint{}, errors.ErrDiscovery
}

var _ Strategy = (*Static)(nil)

// Static resolves a statically configured device address.
type Static struct {
	Address string
	Logger  *slog.Logger
}

func (s Static) Discover(_ context.Context) (Endpoint, bool) {
	if s.Address == "" {
		return Endpoint{}, false
	}
	addr, err := net.ResolveUDPAddr("udp", s.Address)
	if err != nil {
		s.Logger.Warn(fmt.Sprintf("failed to resolve configured device address %s: %s", s.Address, err))
		return Endpoint{}, false
	}
	return Endpoint{Addr: addr}, true
}

var _ Strategy = (*Probe)(nil)

// Probe broadcasts a discovery request and waits for a device handle
// report in reply.
type Probe struct {
	// Broadcast is the probe destination, e.g. "255.255.255.255:9988".
	Broadcast string
	Timeout   time.Duration
	Logger    *slog.Logger
}

func (p Probe) Discover(ctx context.Context) (Endpoint, bool) {
	dst, err := net.ResolveUDPAddr("udp", p.Broadcast)
	if err != nil {
		p.Logger.Warn(fmt.Sprintf("failed to resolve probe address %s: %s", p.Broadcast, err))
		return Endpoint{}, false
	}

	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		p.Logger.Warn(fmt.Sprintf("failed to open probe socket: %s", err))
		return Endpoint{}, false
	}
	defer conn.Close()

	// Closing the socket on cancellation unblocks the read below even
	// when the context carries no deadline.
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-watchCtx.Done()
		conn.Close()
	}()

	req := make([]byte, frameSize)
	binary.LittleEndian.PutUint32(req[0:4], uint32(kindProbe))
	if _, err := conn.WriteTo(req, dst); err != nil {
		p.Logger.Warn(fmt.Sprintf("failed to send discovery probe: %s", err))
		return Endpoint{}, false
	}

	deadline := time.Now().Add(p.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return Endpoint{}, false
	}

	buf := make([]byte, 64)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return Endpoint{}, false
		}
		if n < frameSize {
			continue
		}
		if wavenode.Kind(binary.LittleEndian.Uint32(buf[0:4])) != wavenode.KindDeviceHandle {
			continue
		}
		udpAddr, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		return Endpoint{Addr: udpAddr, Handle: binary.LittleEndian.Uint32(buf[4:8])}, true
	}
}
