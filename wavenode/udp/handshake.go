// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package udp

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
)

// Control kinds understood by the device, outside the telemetry report
// range.
const (
	kindProbe    = 0xF0
	kindRedirect = 0xF1
)

// UpdateMode selects which samples the device pushes after a redirect.
type UpdateMode uint32

const (
	UpdateAll UpdateMode = iota
	UpdateOnChange
	UpdateOnRequest
)

// RequestRedirect asks the device at ep to deliver future telemetry
// frames to listenAddr using the given update mode. This is a one-shot
// startup handshake used in direct mode, not part of steady-state
// operation.
//
// The request datagram is 12 bytes little-endian: control kind, update
// mode, listener port. The device replies to the datagram's source
// address, so only the port is carried explicitly.
func RequestRedirect(_ context.Context, ep Endpoint, listenAddr string, mode UpdateMode) error {
	_, portText, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return fmt.Errorf("invalid listen address %s: %w", listenAddr, err)
	}
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid listen port %s: %w", portText, err)
	}

	conn, err := net.DialUDP("udp", nil, ep.Addr)
	if err != nil {
		return fmt.Errorf("failed to reach device at %s: %w", ep.Addr, err)
	}
	defer conn.Close()

	req := make([]byte, 12)
	binary.LittleEndian.PutUint32(req[0:4], kindRedirect)
	binary.LittleEndian.PutUint32(req[4:8], uint32(mode))
	binary.LittleEndian.PutUint32(req[8:12], uint32(port))

	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("failed to send redirect request: %w", err)
	}
	return nil
}
