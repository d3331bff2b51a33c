// Package client builds the HTTP client shared by mirror list fetches and speed tests.
package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
	log "github.com/sirupsen/logrus"
)

const userAgent = "mirrorrank"

type Config struct {
	// PreDownloadTimeout bounds dialing, TLS handshake and waiting for response headers.
	PreDownloadTimeout time.Duration `yaml:"preDownloadTimeout"`
	// DownloadTimeout bounds a whole request, body included.
	DownloadTimeout time.Duration `yaml:"downloadTimeout"`
}

func (c Config) WithDefaults() Config {
	if c.PreDownloadTimeout == 0 {
		c.PreDownloadTimeout = 5 * time.Second
	}

	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = 2 * time.Minute
	}

	return c
}

// New returns an http.Client which caches DNS lookups, so that testing many URLs from the same handful of hosts
// does not hammer the resolver.
func New(c Config) *http.Client {
	c = c.WithDefaults()

	timeoutDialer := &net.Dialer{
		Timeout: c.PreDownloadTimeout,
	}

	resolver := &dnscache.Resolver{}

	// Stolen from https://github.com/rs/dnscache
	dialContext := func(ctx context.Context, network string, addr string) (conn net.Conn, err error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("splitting host and port %q: %w", addr, err)
		}
		ips, err := resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("looking up %q: %w", host, err)
		}
		for _, ip := range ips {
			conn, err = timeoutDialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				break
			}
		}
		return
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialContext,
		MaxIdleConns:          10,
		ResponseHeaderTimeout: c.PreDownloadTimeout,
		IdleConnTimeout:       c.PreDownloadTimeout,
		TLSHandshakeTimeout:   c.PreDownloadTimeout,
	}

	log.Debugf("Building HTTP client with %s pre-download and %s download timeouts", c.PreDownloadTimeout, c.DownloadTimeout)

	return &http.Client{
		Transport: userAgentTransport{RoundTripper: transport},
		Timeout:   c.DownloadTimeout,
	}
}

type userAgentTransport struct {
	http.RoundTripper
}

func (t userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("user-agent") != "" {
		return t.RoundTripper.RoundTrip(r)
	}

	r = r.Clone(r.Context())
	r.Header.Set("user-agent", userAgent)
	return t.RoundTripper.RoundTrip(r)
}
