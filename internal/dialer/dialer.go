package dialer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sanverite/smartproxy/internal/apperr"
	"github.com/sanverite/smartproxy/internal/registry"
)

// DefaultRetries is R from spec.md §4.7: attempts per candidate runway
// before moving to the next one.
const DefaultRetries = 2

// Backoff between failed attempts against the same runway.
const Backoff = 100 * time.Millisecond

// UpstreamReadTimeout bounds reading the upstream's CONNECT response,
// per spec.md §5 ("upstream CONNECT response read during dial: 5s").
const UpstreamReadTimeout = 5 * time.Second

// Result is a successfully established outbound connection plus the
// runway that produced it. The caller (the session) takes sole
// ownership of Conn from this point on.
type Result struct {
	Conn   net.Conn
	Runway registry.Snapshot
}

// AttemptObserver is called once per dial attempt with "success" or
// "failure", letting a caller mirror attempts into metrics without
// this package importing a metrics library itself. May be nil.
type AttemptObserver func(result string)

// Dial tries each candidate runway in order, up to retries attempts
// per runway, and returns the first successful connection. displayHost
// is used in the upstream CONNECT request line and in logs; resolvedIP
// is used for direct connects. onAttempt, if non-nil, is called after
// every attempt with its outcome. On total failure every intermediate
// socket has already been closed and the returned error wraps
// apperr.ErrUpstreamRefused, apperr.ErrTimeout, or a plain dial error
// depending on the last candidate's failure.
func Dial(ctx context.Context, logger *zap.Logger, displayHost string, resolvedIP net.IP, port int, candidates []registry.Snapshot, timeout time.Duration, retries int, onAttempt AttemptObserver) (Result, error) {
	if retries <= 0 {
		retries = DefaultRetries
	}
	if len(candidates) == 0 {
		return Result{}, apperr.ErrNoRunwayAvailable
	}

	var lastErr error
	for _, runway := range candidates {
		for attempt := 1; attempt <= retries; attempt++ {
			attemptCtx, cancel := context.WithTimeout(ctx, timeout)
			var (
				conn net.Conn
				err  error
			)
			if runway.Key.Direct() {
				conn, err = dialDirect(attemptCtx, runway, resolvedIP, port)
			} else {
				conn, err = dialUpstream(attemptCtx, runway, displayHost, port)
			}
			cancel()

			if err == nil {
				if onAttempt != nil {
					onAttempt("success")
				}
				return Result{Conn: conn, Runway: runway}, nil
			}

			lastErr = err
			if onAttempt != nil {
				onAttempt("failure")
			}
			logger.Debug("dialer: attempt failed",
				zap.Any("runway", runway.Key),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return Result{}, fmt.Errorf("%w: %v", apperr.ErrTimeout, ctx.Err())
			case <-time.After(Backoff):
			}
		}
	}
	return Result{}, fmt.Errorf("dial failed across all candidate runways: %w", lastErr)
}

// RunwayDialer builds the *net.Dialer a runway's outbound sockets
// (direct connects or the TCP leg to an upstream) must use: bound to
// the runway's interface IP and, on Linux, SO_BINDTODEVICE'd to the
// named interface. The prober uses this directly to time its own
// single-attempt probes without going through Dial's retry loop.
func RunwayDialer(runway registry.Snapshot) *net.Dialer {
	d := &net.Dialer{Control: bindControl(runway.Interface)}
	if runway.InterfaceIP != "" && runway.InterfaceIP != "0.0.0.0" {
		d.LocalAddr = &net.TCPAddr{IP: net.ParseIP(runway.InterfaceIP)}
	}
	return d
}

func dialDirect(ctx context.Context, runway registry.Snapshot, ip net.IP, port int) (net.Conn, error) {
	d := RunwayDialer(runway)
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("direct dial via %s: %w", runway.Interface, err)
	}
	return conn, nil
}

func dialUpstream(ctx context.Context, runway registry.Snapshot, displayHost string, port int) (net.Conn, error) {
	up := runway.Upstream
	if up == nil {
		return nil, fmt.Errorf("runway %+v has no upstream", runway.Key)
	}

	d := RunwayDialer(runway)
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(up.Host, strconv.Itoa(up.Port)))
	if err != nil {
		return nil, fmt.Errorf("upstream dial %s:%d: %w", up.Host, up.Port, err)
	}

	if err := SendConnectAndCheck200(conn, displayHost, port, UpstreamReadTimeout); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// SendConnectAndCheck200 writes an HTTP/1.1 CONNECT request for
// targetHost:targetPort to conn and requires the token "200" appear
// in the first 4096 bytes of the response, per spec.md §6's upstream
// proxy contract. Shared by the dialer's chaining handshake and the
// prober's upstream reachability probe so both read the response the
// same way.
func SendConnectAndCheck200(conn net.Conn, targetHost string, targetPort int, readTimeout time.Duration) error {
	target := net.JoinHostPort(targetHost, strconv.Itoa(targetPort))
	req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n\r\n", target, target)
	if _, err := conn.Write([]byte(req)); err != nil {
		return fmt.Errorf("write CONNECT to upstream: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil && n == 0 {
		return fmt.Errorf("%w: read upstream response: %v", apperr.ErrUpstreamRefused, err)
	}
	if !bytes.Contains(buf[:n], []byte("200")) {
		return fmt.Errorf("%w: upstream response missing 200 token", apperr.ErrUpstreamRefused)
	}
	return nil
}
