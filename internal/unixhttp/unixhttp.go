// Package unixhttp builds HTTP clients that talk to daemons over a unix socket.
package unixhttp

import (
	"context"
	"net"
	"net/http"
	"time"
)

// BaseURL is the placeholder origin used for requests; the host is ignored by the dialer.
const BaseURL = "http://localhost"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// NewClient returns an http.Client whose every connection dials socket.
func NewClient(socket string) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socket)
		},
		MaxIdleConns:    2,
		IdleConnTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: DefaultTimeout}
}
