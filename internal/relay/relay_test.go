package relay

import (
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeCounters struct {
	active int32
	peak   int32
}

func (c *fakeCounters) IncActive() {
	v := atomic.AddInt32(&c.active, 1)
	for {
		p := atomic.LoadInt32(&c.peak)
		if v <= p || atomic.CompareAndSwapInt32(&c.peak, p, v) {
			break
		}
	}
}
func (c *fakeCounters) DecActive() { atomic.AddInt32(&c.active, -1) }

// tcpPipe returns a connected pair of *net.TCPConn over loopback, so
// CloseWrite is exercised the same way it would be against a real
// client or outbound socket.
func tcpPipe(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	serverCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			serverCh <- c
		}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	server := <-serverCh
	return client, server
}

func TestRunCopiesBothDirectionsAndCloses(t *testing.T) {
	clientSide, clientPeer := tcpPipe(t)
	outboundSide, outboundPeer := tcpPipe(t)

	counters := &fakeCounters{}
	done := make(chan error, 1)
	go func() { done <- Run(zap.NewNop(), clientSide, outboundSide, counters) }()

	if _, err := clientPeer.Write([]byte("ping")); err != nil {
		t.Fatalf("write client->outbound: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(outboundPeer, buf); err != nil {
		t.Fatalf("read on outbound side: %v", err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q, want ping", buf)
	}

	if _, err := outboundPeer.Write([]byte("pong")); err != nil {
		t.Fatalf("write outbound->client: %v", err)
	}
	if _, err := io.ReadFull(clientPeer, buf); err != nil {
		t.Fatalf("read on client side: %v", err)
	}
	if string(buf) != "pong" {
		t.Fatalf("got %q, want pong", buf)
	}

	clientPeer.Close()
	outboundPeer.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after both peers closed")
	}

	if atomic.LoadInt32(&counters.active) != 0 {
		t.Fatalf("active counter not decremented, got %d", counters.active)
	}
	if counters.peak != 1 {
		t.Fatalf("expected active to have peaked at 1, got %d", counters.peak)
	}
}

func TestRunHalfClosesOutboundWhenClientCloses(t *testing.T) {
	clientSide, clientPeer := tcpPipe(t)
	outboundSide, outboundPeer := tcpPipe(t)
	defer outboundPeer.Close()

	counters := &fakeCounters{}
	done := make(chan error, 1)
	go func() { done <- Run(zap.NewNop(), clientSide, outboundSide, counters) }()

	clientPeer.Close()

	// The outbound peer should observe EOF on its read side (the
	// client->outbound loop half-closed outboundSide's write end)
	// without outboundPeer itself being torn down.
	buf := make([]byte, 1)
	outboundPeer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := outboundPeer.Read(buf); err != io.EOF {
		t.Fatalf("expected EOF on outbound peer after client closed, got %v", err)
	}

	outboundPeer.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after both sides closed")
	}
}
