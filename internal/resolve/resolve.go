// Package resolve looks up server hostnames, falling back to public DNS
// servers when the system resolver fails. Classroom networks often ship
// broken resolvers.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// PublicDNS are servers to be queried if a local lookup fails.
var PublicDNS = []string{
	"1.1.1.1",                // Cloudflare
	"1.0.0.1",                // Cloudflare
	"[2606:4700:4700::1111]", // Cloudflare
	"8.8.8.8",                // Google
	"8.8.4.4",                // Google
	"[2001:4860:4860::8888]", // Google
	"9.9.9.9",                // Quad9
	"149.112.112.112",        // Quad9
	"208.67.222.222",         // Cisco OpenDNS
	"208.67.220.220",         // Cisco OpenDNS
}

type lookupFunc func(ctx context.Context, host string) ([]string, error)

// Resolver resolves with the system resolver first and then races the
// public servers.
type Resolver struct {
	LocalTimeout  time.Duration
	RemoteTimeout time.Duration
	Servers       []string

	local  lookupFunc
	remote func(server string) lookupFunc
	dial   func(ctx context.Context, network, addr string) (net.Conn, error)
}

// New returns a Resolver using the real network.
func New() *Resolver {
	d := &net.Dialer{Timeout: 10 * time.Second}
	return &Resolver{
		LocalTimeout:  time.Second,
		RemoteTimeout: 2 * time.Second,
		Servers:       PublicDNS,
		local:         net.DefaultResolver.LookupHost,
		remote:        viaServer,
		dial:          d.DialContext,
	}
}

func viaServer(server string) lookupFunc {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
	return r.LookupHost
}

// Lookup resolves host to a single IP address, preferring IPv4. Literal
// addresses are returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	lctx, cancel := context.WithTimeout(ctx, r.LocalTimeout)
	ips, err := r.local(lctx, host)
	cancel()
	if err == nil && len(ips) > 0 {
		return pick(ips), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return r.race(ctx, host)
}

func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	if len(r.Servers) == 0 {
		return "", fmt.Errorf("resolve %s: system lookup failed and no public servers configured", host)
	}

	type result struct {
		ips []string
		err error
	}
	ctx, cancel := context.WithTimeout(ctx, r.RemoteTimeout)
	defer cancel()

	results := make(chan result, len(r.Servers))
	for _, server := range r.Servers {
		go func() {
			ips, err := r.remote(server)(ctx, host)
			results <- result{ips: ips, err: err}
		}()
	}

	failed := 0
	for range r.Servers {
		select {
		case res := <-results:
			if res.err == nil && len(res.ips) > 0 {
				return pick(res.ips), nil
			}
			failed++
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: public DNS race timed out", host)
		}
	}
	return "", fmt.Errorf("resolve %s: all %d public DNS servers failed", host, failed)
}

func pick(ips []string) string {
	for _, ip := range ips {
		if net.ParseIP(ip).To4() != nil {
			return ip
		}
	}
	return ips[0]
}

// DialContext resolves the host part of addr with Lookup and dials the
// result. It fits websocket.Dialer.NetDialContext.
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip, err := r.Lookup(ctx, host)
	if err != nil {
		return nil, errors.Join(errors.New("dns lookup failed"), err)
	}
	return r.dial(ctx, network, net.JoinHostPort(ip, port))
}
