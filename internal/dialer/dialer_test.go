package dialer

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sanverite/smartproxy/internal/platform"
	"github.com/sanverite/smartproxy/internal/registry"
)

func directRunway(t *testing.T) registry.Snapshot {
	t.Helper()
	return registry.Snapshot{
		Key:         registry.Key{Interface: platform.UnspecifiedInterface},
		Interface:   platform.UnspecifiedInterface,
		InterfaceIP: "0.0.0.0",
		Status:      registry.StatusUp,
	}
}

func TestDialDirectSucceeds(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	res, err := Dial(context.Background(), zap.NewNop(), "127.0.0.1", net.ParseIP("127.0.0.1"), addr.Port,
		[]registry.Snapshot{directRunway(t)}, time.Second, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Conn.Close()
}

func TestDialFallsBackAcrossRunways(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()
	addr := ln.Addr().(*net.TCPAddr)

	badRunway := registry.Snapshot{
		Key:         registry.Key{Interface: "eth-does-not-exist"},
		Interface:   "eth-does-not-exist",
		InterfaceIP: "10.255.255.1", // unroutable source IP: direct dial must fail
		Status:      registry.StatusUp,
	}
	goodRunway := directRunway(t)

	res, err := Dial(context.Background(), zap.NewNop(), "127.0.0.1", net.ParseIP("127.0.0.1"), addr.Port,
		[]registry.Snapshot{badRunway, goodRunway}, 500*time.Millisecond, 1, nil)
	if err != nil {
		t.Fatalf("expected fallback to succeed, got error: %v", err)
	}
	if res.Runway.Key != goodRunway.Key {
		t.Fatalf("expected fallback to land on good runway, got %+v", res.Runway.Key)
	}
	res.Conn.Close()
}

func TestDialUpstreamCONNECTSuccess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		reader := bufio.NewReader(c)
		line, _ := reader.ReadString('\n')
		_ = line
		// drain headers until blank line
		for {
			l, err := reader.ReadString('\n')
			if err != nil || l == "\r\n" {
				break
			}
		}
		c.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n"))
	}()

	addr := ln.Addr().(*net.TCPAddr)
	runway := registry.Snapshot{
		Key:       registry.Key{Interface: platform.UnspecifiedInterface, Upstream: addr.String()},
		Interface: platform.UnspecifiedInterface,
		Upstream:  &registry.UpstreamProxy{Host: "127.0.0.1", Port: addr.Port},
		Status:    registry.StatusUp,
	}

	res, err := Dial(context.Background(), zap.NewNop(), "example.com", net.ParseIP("93.184.216.34"), 443,
		[]registry.Snapshot{runway}, time.Second, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Conn.Close()
}

func TestDialUpstreamCONNECTNon200Fails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		c.Write([]byte("HTTP/1.1 403 Forbidden\r\n\r\n"))
	}()

	addr := ln.Addr().(*net.TCPAddr)
	runway := registry.Snapshot{
		Key:       registry.Key{Interface: platform.UnspecifiedInterface, Upstream: "upstream"},
		Interface: platform.UnspecifiedInterface,
		Upstream:  &registry.UpstreamProxy{Host: "127.0.0.1", Port: addr.Port},
		Status:    registry.StatusUp,
	}

	_, err = Dial(context.Background(), zap.NewNop(), "example.com", net.ParseIP("93.184.216.34"), 443,
		[]registry.Snapshot{runway}, time.Second, 1, nil)
	if err == nil {
		t.Fatalf("expected error for non-200 upstream response")
	}
}

func TestDialEmptyCandidatesReturnsNoRunwayAvailable(t *testing.T) {
	_, err := Dial(context.Background(), zap.NewNop(), "x", net.ParseIP("1.2.3.4"), 80, nil, time.Second, 1, nil)
	if err == nil {
		t.Fatalf("expected error for empty candidates")
	}
}

func TestDialCallsOnAttemptWithOutcome(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()
	addr := ln.Addr().(*net.TCPAddr)

	var results []string
	onAttempt := func(result string) { results = append(results, result) }

	res, err := Dial(context.Background(), zap.NewNop(), "127.0.0.1", net.ParseIP("127.0.0.1"), addr.Port,
		[]registry.Snapshot{directRunway(t)}, time.Second, 1, onAttempt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Conn.Close()

	if len(results) != 1 || results[0] != "success" {
		t.Fatalf("expected one success observation, got %v", results)
	}
}
