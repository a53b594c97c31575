package resolver

import (
	"context"
	"fmt"
	"net"

	"github.com/sanverite/smartproxy/internal/apperr"
)

// Resolve returns an IP for host. If host already parses as an IPv4 or
// IPv6 literal it is returned unchanged. Otherwise it looks up A
// records, falling back to AAAA if none are found.
func Resolve(ctx context.Context, r *net.Resolver, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	if r == nil {
		r = net.DefaultResolver
	}

	if ips, err := r.LookupIP(ctx, "ip4", host); err == nil && len(ips) > 0 {
		return ips[0], nil
	}
	ips, err := r.LookupIP(ctx, "ip6", host)
	if err != nil || len(ips) == 0 {
		if err == nil {
			err = fmt.Errorf("no A or AAAA records for %q", host)
		}
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrResolution, host, err)
	}
	return ips[0], nil
}
