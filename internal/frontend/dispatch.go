package frontend

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sanverite/smartproxy/internal/apperr"
	"github.com/sanverite/smartproxy/internal/config"
)

// DispatchTimeout bounds reading the first byte(s) used to tell the
// two protocols apart.
const DispatchTimeout = 2 * time.Second

// Protocol names the detected client protocol.
type Protocol string

const (
	ProtocolSOCKS5      Protocol = "socks5"
	ProtocolHTTPConnect Protocol = "http_connect"
)

// Result is what the front-end hands to the session: the detected
// protocol and the client's requested target.
type Result struct {
	Protocol Protocol
	Host     string
	Port     int
}

// ReplyWriter lets the session tell the front-end handler how the
// downstream connect attempt went, so the handler can emit the right
// protocol-specific success or failure reply before the caller starts
// relaying bytes.
type ReplyWriter interface {
	// WriteSuccess emits the protocol's success reply. bndHost is the
	// outbound connection's local address and bndPort the port echoed
	// in the reply (the session passes the target port); both are used
	// only by SOCKS5.
	WriteSuccess(bndHost string, bndPort int) error
	// WriteFailure emits the protocol's failure reply for err and
	// closes nothing itself — the caller still owns the connection.
	WriteFailure(err error) error
}

// Dispatch reads just enough of the client's opening bytes to tell
// SOCKS5 (first byte 0x05) from HTTP CONNECT (first 7 bytes "CONNECT")
// apart, then runs the matching handler to completion. auth is nil
// when authentication is disabled.
//
// On success it returns the target and a ReplyWriter the caller must
// invoke exactly once (WriteSuccess or WriteFailure) once the dial
// outcome is known. On failure the connection has already been
// answered (where the protocol defines a failure reply) and the
// caller should close it without writing anything further.
func Dispatch(ctx context.Context, conn net.Conn, auth *config.Auth) (Result, ReplyWriter, error) {
	_ = conn.SetReadDeadline(time.Now().Add(DispatchTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var first [1]byte
	if _, err := io.ReadFull(conn, first[:]); err != nil {
		return Result{}, nil, fmt.Errorf("%w: read first byte: %v", apperr.ErrProtocol, err)
	}

	if first[0] == 0x05 {
		return dispatchSOCKS5(ctx, conn, auth)
	}

	// Not SOCKS5: read up to 7 more bytes and look for "CONNECT" across
	// the first 7 accumulated bytes (the 6 remaining to complete the
	// word plus one byte of slack).
	rest := make([]byte, 7)
	n, err := io.ReadAtLeast(conn, rest, 6)
	if err != nil {
		return Result{}, nil, fmt.Errorf("%w: read greeting: %v", apperr.ErrProtocol, err)
	}
	prefix := append([]byte{first[0]}, rest[:n]...)
	if len(prefix) >= 7 && string(prefix[:7]) == "CONNECT" {
		return dispatchHTTPConnect(ctx, conn, prefix, auth)
	}

	return Result{}, nil, fmt.Errorf("%w: unrecognized client greeting", apperr.ErrProtocol)
}
