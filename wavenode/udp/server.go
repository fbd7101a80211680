// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package udp implements the inbound telemetry transport: a datagram
// listener delivering raw WaveNode frames to the dispatch loop, plus
// device endpoint discovery and the direct-mode handshake.
package udp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/n3bkv/WaveNode-to-MQTT/internal/server"
	svcerr "github.com/n3bkv/WaveNode-to-MQTT/pkg/errors"
	"github.com/n3bkv/WaveNode-to-MQTT/wavenode"
)

// Telemetry frames are 8 bytes little-endian: kind uint32, payload
// uint32.
const frameSize = 8

var _ server.Server = (*Server)(nil)

// Server reads telemetry datagrams and dispatches them to the bridge
// service. A single goroutine reads and dispatches in arrival order,
// which realizes the one-writer model the channel state and throttle
// records rely on.
type Server struct {
	server.BaseServer
	svc  wavenode.Service
	conn net.PacketConn
}

// New returns a UDP transport server delivering frames to svc.
func New(ctx context.Context, cancel context.CancelFunc, name string, config server.Config, svc wavenode.Service, logger *slog.Logger) server.Server {
	listenFullAddress := fmt.Sprintf("%s:%s", config.Host, config.Port)
	return &Server{
		BaseServer: server.BaseServer{
			Ctx:      ctx,
			Cancel:   cancel,
			Name:     name,
			Address:  listenFullAddress,
			Config:   config,
			Logger:   logger,
			Protocol: "udp",
		},
		svc: svc,
	}
}

func (s *Server) Start() error {
	conn, err := net.ListenPacket("udp", s.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Address, err)
	}
	s.conn = conn
	s.Logger.Info(fmt.Sprintf("%s service %s server listening at %s", s.Name, s.Protocol, s.Address))

	errCh := make(chan error)
	go func() {
		errCh <- s.loop()
	}()

	select {
	case <-s.Ctx.Done():
		return s.Stop()
	case err := <-errCh:
		return err
	}
}

func (s *Server) Stop() error {
	defer s.Cancel()
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return fmt.Errorf("%s service %s server error occurred during shutdown at %s: %w", s.Name, s.Protocol, s.Address, err)
		}
	}
	s.Logger.Info(fmt.Sprintf("%s %s service shutdown at %s", s.Name, s.Protocol, s.Address))
	return nil
}

// loop reads one datagram at a time and dispatches it synchronously.
// Truncated datagrams are logged and skipped; dispatch errors are logged
// and never stop the loop.
func (s *Server) loop() error {
	buf := make([]byte, 64)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}

		if n < frameSize {
			s.Logger.Warn(fmt.Sprintf("dropping %s: %d bytes from %s", svcerr.ErrMalformedFrame, n, addr))
			continue
		}

		frame := wavenode.Frame{
			Kind:    wavenode.Kind(binary.LittleEndian.Uint32(buf[0:4])),
			Payload: binary.LittleEndian.Uint32(buf[4:8]),
		}
		if err := s.svc.Dispatch(s.Ctx, frame); err != nil {
			s.Logger.Warn(fmt.Sprintf("failed to dispatch frame kind %d: %s", frame.Kind, err))
		}
	}
}
