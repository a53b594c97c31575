package relay

import (
	"io"
	"net"

	"go.uber.org/zap"
)

// BufferSize is the per-direction copy buffer, per spec.md §4.8.
const BufferSize = 64 * 1024

// halfCloser is implemented by net.TCPConn (and similar stream types)
// that support shutting down one direction without tearing down the
// whole socket.
type halfCloser interface {
	CloseWrite() error
}

// ActiveCounter receives the relay's active-session lifecycle signal.
// failed_connections is not a relay concern: per spec.md §4.8 it is
// incremented only when a session ends before the outbound leg is
// established, which happens entirely before Run is ever called.
type ActiveCounter interface {
	IncActive()
	DecActive()
}

// Run copies bytes between client and outbound until both directions
// have terminated, then closes both sockets. It always returns after
// both copy loops exit; the returned error, if any, is whichever
// direction failed first (informational only, both sides are already
// torn down by the time it's returned).
func Run(logger *zap.Logger, client, outbound net.Conn, counters ActiveCounter) error {
	counters.IncActive()
	defer counters.DecActive()
	defer client.Close()
	defer outbound.Close()

	errc := make(chan error, 2)
	go func() { errc <- copyHalf(outbound, client) }() // client -> outbound
	go func() { errc <- copyHalf(client, outbound) }() // outbound -> client

	first := <-errc
	second := <-errc
	if first == nil {
		first = second
	}
	if first != nil && first != io.EOF {
		logger.Debug("relay: session ended", zap.Error(first))
	}
	return first
}

// copyHalf copies src into dst until EOF or error, then half-closes
// dst's write side so the peer observes end-of-stream without losing
// the still-open read half.
func copyHalf(dst, src net.Conn) error {
	buf := make([]byte, BufferSize)
	_, err := io.CopyBuffer(dst, src, buf)
	if hc, ok := dst.(halfCloser); ok {
		_ = hc.CloseWrite()
	}
	return err
}
