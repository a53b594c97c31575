package frontend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/sanverite/smartproxy/internal/apperr"
	"github.com/sanverite/smartproxy/internal/config"
	"github.com/sanverite/smartproxy/internal/wire"
)

// socks5Reply implements ReplyWriter for a SOCKS5 session.
type socks5Reply struct {
	conn net.Conn
	port uint16
}

func (w *socks5Reply) WriteSuccess(bndHost string, bndPort int) error {
	_, err := w.conn.Write(wire.ReplyBytes(wire.RepSucceeded, bndHost, uint16(bndPort)))
	return err
}

func (w *socks5Reply) WriteFailure(err error) error {
	rep := repForFailure(err)
	_, werr := w.conn.Write(wire.ReplyBytes(rep, "0.0.0.0", 0))
	return werr
}

func repForFailure(err error) byte {
	switch {
	case err == nil:
		return wire.RepSucceeded
	case errors.Is(err, apperr.ErrUnsupportedCommand):
		return wire.RepCommandNotSupported
	case errors.Is(err, apperr.ErrNoRunwayAvailable):
		return wire.RepNetworkUnreachable
	case errors.Is(err, apperr.ErrResolution):
		return wire.RepHostUnreachable
	case errors.Is(err, apperr.ErrUpstreamRefused), errors.Is(err, apperr.ErrTimeout):
		return wire.RepConnectionRefused
	default:
		return wire.RepGeneralFailure
	}
}

// dispatchSOCKS5 implements RFC 1928's greeting and request phases for
// the CONNECT command only, plus RFC 1929 username/password
// sub-negotiation when auth is enabled. The version byte has already
// been consumed by Dispatch; parsing resumes from the method count.
func dispatchSOCKS5(ctx context.Context, conn net.Conn, auth *config.Auth) (Result, ReplyWriter, error) {
	var nMethods [1]byte
	if _, err := io.ReadFull(conn, nMethods[:]); err != nil {
		return Result{}, nil, fmt.Errorf("%w: read method count: %v", apperr.ErrProtocol, err)
	}
	methods := make([]byte, nMethods[0])
	if _, err := io.ReadFull(conn, methods); err != nil {
		return Result{}, nil, fmt.Errorf("%w: read methods: %v", apperr.ErrProtocol, err)
	}

	authRequired := auth != nil && auth.Enabled
	if authRequired {
		if !containsByte(methods, wire.MethodUserPass) {
			_, _ = conn.Write([]byte{0x05, wire.MethodNoAccept})
			return Result{}, nil, fmt.Errorf("%w: client did not offer username/password", apperr.ErrAuth)
		}
		if _, err := conn.Write([]byte{0x05, wire.MethodUserPass}); err != nil {
			return Result{}, nil, fmt.Errorf("%w: write method selection: %v", apperr.ErrProtocol, err)
		}
		if err := socks5Authenticate(conn, auth); err != nil {
			return Result{}, nil, err
		}
	} else {
		if _, err := conn.Write([]byte{0x05, wire.MethodNoAuth}); err != nil {
			return Result{}, nil, fmt.Errorf("%w: write method selection: %v", apperr.ErrProtocol, err)
		}
	}

	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return Result{}, nil, fmt.Errorf("%w: read request header: %v", apperr.ErrProtocol, err)
	}
	cmd, atyp := hdr[1], hdr[3]

	if cmd != wire.CmdConnect {
		_, _ = conn.Write(wire.ReplyBytes(wire.RepCommandNotSupported, "0.0.0.0", 0))
		return Result{}, nil, fmt.Errorf("%w: socks5 command 0x%02x", apperr.ErrUnsupportedCommand, cmd)
	}

	addr, err := wire.DecodeAddress(conn, atyp)
	if err != nil {
		_, _ = conn.Write(wire.ReplyBytes(wire.RepAddrTypeNotSupported, "0.0.0.0", 0))
		return Result{}, nil, fmt.Errorf("%w: decode address: %v", apperr.ErrProtocol, err)
	}

	return Result{Protocol: ProtocolSOCKS5, Host: addr.Host, Port: int(addr.Port)},
		&socks5Reply{conn: conn, port: addr.Port}, nil
}

// socks5Authenticate performs RFC 1929 username/password
// sub-negotiation and replies 01 00 on success or 01 01 on failure.
func socks5Authenticate(conn net.Conn, auth *config.Auth) error {
	var ver [1]byte
	if _, err := io.ReadFull(conn, ver[:]); err != nil {
		return fmt.Errorf("%w: read auth version: %v", apperr.ErrProtocol, err)
	}
	if ver[0] != 0x01 {
		return fmt.Errorf("%w: unexpected auth version 0x%02x", apperr.ErrProtocol, ver[0])
	}

	user, err := readLengthPrefixed(conn)
	if err != nil {
		return fmt.Errorf("%w: read username: %v", apperr.ErrProtocol, err)
	}
	pass, err := readLengthPrefixed(conn)
	if err != nil {
		return fmt.Errorf("%w: read password: %v", apperr.ErrProtocol, err)
	}

	secret, ok := auth.Users[string(user)]
	if !ok || secret != string(pass) {
		_, _ = conn.Write([]byte{0x01, 0x01})
		return fmt.Errorf("%w: bad username/password", apperr.ErrAuth)
	}

	if _, err := conn.Write([]byte{0x01, 0x00}); err != nil {
		return fmt.Errorf("%w: write auth success: %v", apperr.ErrProtocol, err)
	}
	return nil
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var l [1]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, err
	}
	buf := make([]byte, l[0])
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func containsByte(haystack []byte, b byte) bool {
	for _, v := range haystack {
		if v == b {
			return true
		}
	}
	return false
}
