// Package apperr defines the error kinds shared across the runway
// plane and the protocol front-end, one sentinel per failure mode
// named in the design's error handling section. Call sites wrap these
// with fmt.Errorf("...: %w", ErrX) to preserve context while keeping
// errors.Is checks stable for callers (protocol handlers choosing a
// reply code, the control surface counting failures).
package apperr

import "errors"

var (
	// ErrProtocol marks a malformed client handshake (bad SOCKS5
	// version, truncated HTTP request line, ...).
	ErrProtocol = errors.New("protocol error")

	// ErrAuth marks missing or rejected credentials.
	ErrAuth = errors.New("authentication error")

	// ErrUnsupportedCommand marks a SOCKS5 command other than CONNECT,
	// or an HTTP method other than CONNECT.
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrResolution marks a DNS lookup failure for the target host.
	ErrResolution = errors.New("resolution error")

	// ErrNoRunwayAvailable marks an empty candidate list from the
	// selector: no up-runway exists.
	ErrNoRunwayAvailable = errors.New("no runway available")

	// ErrUpstreamRefused marks a non-200 or unreachable upstream
	// CONNECT proxy response.
	ErrUpstreamRefused = errors.New("upstream refused")

	// ErrTimeout marks a deadline exceeded on a suspension point that
	// is expected to carry one (handshake read, probe, dial).
	ErrTimeout = errors.New("timeout")

	// ErrPeerClosed marks a clean EOF from a peer mid-protocol, before
	// a session reached a terminal success state.
	ErrPeerClosed = errors.New("peer closed")

	// ErrConfig marks a malformed or otherwise invalid configuration
	// document; config.Load and config.Reload never return this to a
	// caller that would abort startup — they fall back to defaults or
	// to the previous config instead, per spec.
	ErrConfig = errors.New("config error")
)
