// Package hypervisor reads and updates the openstack-hypervisor snap's
// settings over its REST socket.
package hypervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexisbeaulieu97/sunbeam/internal/reconcile"
	"github.com/alexisbeaulieu97/sunbeam/internal/unixhttp"
)

// DefaultSocket is where the hypervisor configuration service listens.
const DefaultSocket = "/var/snap/openstack-hypervisor/common/hypervisor-config.sock"

// Settings sections.
const (
	SectionIdentity = "identity"
	SectionRabbitMQ = "rabbitmq"
	SectionNetwork  = "network"
	SectionNode     = "node"
	SectionCompute  = "compute"
	SectionLogging  = "logging"
)

var sections = map[string]struct{}{
	SectionIdentity: {}, SectionRabbitMQ: {}, SectionNetwork: {},
	SectionNode: {}, SectionCompute: {}, SectionLogging: {},
}

// APIError is a non-2xx response from the hypervisor service.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hypervisor %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the hypervisor configuration service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a client for the socket, or DefaultSocket when empty.
func NewClient(socket string) *Client {
	if socket == "" {
		socket = DefaultSocket
	}
	return &Client{httpClient: unixhttp.NewClient(socket), baseURL: unixhttp.BaseURL}
}

// Get returns the current settings of section.
func (c *Client) Get(ctx context.Context, section string) (reconcile.Values, error) {
	if err := checkSection(section); err != nil {
		return nil, err
	}
	values := reconcile.Values{}
	if err := c.do(ctx, http.MethodGet, "/settings/"+section, nil, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// Update applies values to section and returns the settings the service reports back.
func (c *Client) Update(ctx context.Context, section string, values reconcile.Values) (reconcile.Values, error) {
	if err := checkSection(section); err != nil {
		return nil, err
	}
	updated := reconcile.Values{}
	if err := c.do(ctx, http.MethodPatch, "/settings/"+section, values, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Reset restores every section to the service defaults.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reset", nil, nil)
}

func checkSection(section string) error {
	if _, ok := sections[section]; !ok {
		return fmt.Errorf("unknown hypervisor settings section %q", section)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+(&url.URL{Path: path}).EscapedPath(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hypervisor %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w (status %d)", err, resp.StatusCode)
	}
	return nil
}
