// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Package transport implements the single request/response TCP exchange:
// connect, send one message and close the write side, read until the peer
// closes the connection, close. No authentication or encryption is
// performed.
package transport

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Dialer opens sessions against a single server endpoint.
type Dialer struct {
	// SourceIP optionally binds outbound connections to a specific local
	// address, the Go analogue of CONFIG_SOURCE_IP.
	SourceIP string
}

func (d *Dialer) dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	nd := &net.Dialer{Timeout: timeout}
	if d.SourceIP != "" {
		local, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(d.SourceIP, "0"))
		if err != nil {
			return nil, errors.Wrapf(err, "transport: resolve source ip %q", d.SourceIP)
		}
		nd.LocalAddr = local
	}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: connect %q", addr)
	}
	return conn, nil
}

// SendAndReadUntilClose sends payload over a fresh connection to addr and
// reads until the peer closes it, used for getActiveChecks replies whose
// framing is "read until EOF".
func (d *Dialer) SendAndReadUntilClose(ctx context.Context, addr string, payload []byte, timeout time.Duration) ([]byte, error) {
	conn, err := d.dial(ctx, addr, timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := writeAll(conn, payload, timeout); err != nil {
		return nil, err
	}

	_ = conn.SetReadDeadline(deadline(timeout))
	data, err := io.ReadAll(conn)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "transport: read until close")
	}
	return data, nil
}

// SendAndReadOne sends payload over a fresh connection to addr and reads the
// reply until the peer closes the connection, used for agentData's
// response.
func (d *Dialer) SendAndReadOne(ctx context.Context, addr string, payload []byte, timeout time.Duration) ([]byte, error) {
	conn, err := d.dial(ctx, addr, timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := writeAll(conn, payload, timeout); err != nil {
		return nil, err
	}

	_ = conn.SetReadDeadline(deadline(timeout))
	data, err := io.ReadAll(conn)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "transport: read reply")
	}
	return data, nil
}

func writeAll(conn net.Conn, payload []byte, timeout time.Duration) error {
	_ = conn.SetWriteDeadline(deadline(timeout))
	w := bufio.NewWriter(conn)
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "transport: send")
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "transport: flush")
	}
	// The request has no length header, so closing the write side is what
	// tells the peer the request is complete.
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			return errors.Wrap(err, "transport: close write")
		}
	}
	return nil
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}
