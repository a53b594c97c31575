package frontend

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sanverite/smartproxy/internal/config"
)

// pipePair returns the two ends of a net.Pipe, both closed when the
// test finishes.
func pipePair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func TestDispatchSOCKS5NoAuthHappyPath(t *testing.T) {
	server, client := pipePair(t)

	go func() {
		// greeting: VER NMETHODS METHODS
		client.Write([]byte{0x05, 0x01, 0x00})
		// method selection reply expected: 05 00
		buf := make([]byte, 2)
		client.Read(buf)
		// request: VER CMD RSV ATYP ADDR PORT (IPv4 93.184.216.34:80)
		client.Write([]byte{0x05, 0x01, 0x00, 0x01, 93, 184, 216, 34, 0, 80})
	}()

	res, rw, err := Dispatch(context.Background(), server, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Protocol != ProtocolSOCKS5 || res.Host != "93.184.216.34" || res.Port != 80 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if rw == nil {
		t.Fatalf("expected non-nil reply writer")
	}
}

func TestDispatchSOCKS5RequiresAuthWhenEnabled(t *testing.T) {
	server, client := pipePair(t)
	auth := &config.Auth{Enabled: true, Users: map[string]string{"alice": "wonder"}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// greeting offering only no-auth; server should reject.
		client.Write([]byte{0x05, 0x01, 0x00})
		buf := make([]byte, 2)
		client.Read(buf)
	}()

	_, _, err := Dispatch(context.Background(), server, auth)
	<-done
	if err == nil {
		t.Fatalf("expected error when client does not offer user/pass under required auth")
	}
}

func TestDispatchSOCKS5UserPassAuthSuccess(t *testing.T) {
	server, client := pipePair(t)
	auth := &config.Auth{Enabled: true, Users: map[string]string{"alice": "wonder"}}

	go func() {
		client.Write([]byte{0x05, 0x02, 0x00, 0x02})
		buf := make([]byte, 2)
		client.Read(buf) // 05 02
		req := []byte{0x01, byte(len("alice"))}
		req = append(req, "alice"...)
		req = append(req, byte(len("wonder")))
		req = append(req, "wonder"...)
		client.Write(req)
		client.Read(buf) // 01 00
		client.Write([]byte{0x05, 0x01, 0x00, 0x03, byte(len("example.com"))})
		client.Write([]byte("example.com"))
		client.Write([]byte{0x00, 0x50})
	}()

	res, _, err := Dispatch(context.Background(), server, auth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Host != "example.com" || res.Port != 80 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDispatchSOCKS5RejectsNonConnectCommand(t *testing.T) {
	server, client := pipePair(t)

	go func() {
		client.Write([]byte{0x05, 0x01, 0x00})
		buf := make([]byte, 2)
		client.Read(buf)
		// CMD=0x02 (BIND), unsupported
		client.Write([]byte{0x05, 0x02, 0x00, 0x01, 1, 2, 3, 4, 0, 1})
	}()

	_, _, err := Dispatch(context.Background(), server, nil)
	if err == nil {
		t.Fatalf("expected error for unsupported command")
	}
}

func TestDispatchUnrecognizedGreetingFails(t *testing.T) {
	server, client := pipePair(t)
	go func() {
		client.Write([]byte("GARBAGE!"))
	}()
	_, _, err := Dispatch(context.Background(), server, nil)
	if err == nil {
		t.Fatalf("expected protocol error for unrecognized greeting")
	}
}

func TestDispatchHonorsDeadline(t *testing.T) {
	server, client := pipePair(t)
	_ = client // client never writes; Dispatch must time out, not hang forever.

	start := time.Now()
	_, _, err := Dispatch(context.Background(), server, nil)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > DispatchTimeout+time.Second {
		t.Fatalf("dispatch took too long: %v", elapsed)
	}
}
