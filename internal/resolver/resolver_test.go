package resolver

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/sanverite/smartproxy/internal/apperr"
)

func TestResolveIPv4LiteralPassesThrough(t *testing.T) {
	ip, err := Resolve(context.Background(), nil, "93.184.216.34")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ip.String() != "93.184.216.34" {
		t.Fatalf("expected literal passthrough, got %s", ip)
	}
}

func TestResolveIPv6LiteralPassesThrough(t *testing.T) {
	ip, err := Resolve(context.Background(), nil, "::1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ip.String() != "::1" {
		t.Fatalf("expected literal passthrough, got %s", ip)
	}
}

func TestResolveFailurePropagatesAsResolutionError(t *testing.T) {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, errors.New("no network in test")
		},
	}
	_, err := Resolve(context.Background(), r, "definitely-not-a-real-host.invalid")
	if !errors.Is(err, apperr.ErrResolution) {
		t.Fatalf("expected apperr.ErrResolution, got %v", err)
	}
}
