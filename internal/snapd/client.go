// Package snapd is a small client for the snapd REST API.
package snapd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/sunbeam/internal/unixhttp"
)

// DefaultSocket is where snapd listens.
const DefaultSocket = "/run/snapd.socket"

// Change statuses reported by snapd.
const (
	StatusDo      = "Do"
	StatusDoing   = "Doing"
	StatusDone    = "Done"
	StatusAbort   = "Abort"
	StatusUndo    = "Undo"
	StatusUndoing = "Undoing"
	StatusUndone  = "Undone"
	StatusHold    = "Hold"
	StatusError   = "Error"
)

// Snap is the subset of installed snap metadata used here.
type Snap struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Channel         string `json:"channel"`
	TrackingChannel string `json:"tracking-channel"`
	Revision        string `json:"revision"`
	Status          string `json:"status"`
	Confinement     string `json:"confinement"`
}

// Task is one unit of work inside a change.
type Task struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

// Change tracks an asynchronous snapd operation.
type Change struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Err     string `json:"err,omitempty"`
	Tasks   []Task `json:"tasks"`
}

// APIError is an error response from snapd.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("snapd: %s (%s, status %d)", e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("snapd: %s (status %d)", e.Message, e.StatusCode)
}

// TimeoutError is returned by WaitUntil when a change does not settle in time.
type TimeoutError struct {
	ChangeID string
	Status   string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for change %s (last status %q)", e.ChangeID, e.Status)
}

// Client talks to snapd over its unix socket.
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

type response struct {
	Type       string          `json:"type"`
	StatusCode int             `json:"status-code"`
	Status     string          `json:"status"`
	Result     json.RawMessage `json:"result"`
	Change     string          `json:"change"`
}

type errorResult struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Installed returns the installed snaps among names, or every installed snap
// when names is empty. No matching snap gives an empty list.
func (c *Client) Installed(ctx context.Context, names ...string) ([]Snap, error) {
	path := "/v2/snaps"
	if len(names) > 0 {
		path += "?snaps=" + url.QueryEscape(strings.Join(names, ","))
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return []Snap{}, nil
		}
		return nil, err
	}

	var snaps []Snap
	if err := json.Unmarshal(resp.Result, &snaps); err != nil {
		return nil, fmt.Errorf("parse snaps: %w", err)
	}
	return snaps, nil
}

// Install starts installing name from channel and returns the change id.
func (c *Client) Install(ctx context.Context, name, channel string) (string, error) {
	payload := map[string]any{"action": "install"}
	if channel != "" {
		payload["channel"] = channel
	}

	resp, err := c.do(ctx, http.MethodPost, "/v2/snaps/"+url.PathEscape(name), payload)
	if err != nil {
		return "", err
	}
	if resp.Change == "" {
		return "", fmt.Errorf("snapd did not return a change id for installing %s", name)
	}
	return resp.Change, nil
}

// Change returns the current state of change id.
func (c *Client) Change(ctx context.Context, id string) (Change, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v2/changes/"+url.PathEscape(id), nil)
	if err != nil {
		return Change{}, err
	}

	var change Change
	if err := json.Unmarshal(resp.Result, &change); err != nil {
		return Change{}, fmt.Errorf("parse change %s: %w", id, err)
	}
	return change, nil
}

// WaitUntil polls change id every interval until its status is one of
// statuses or timeout elapses. The last observed change is always returned.
func (c *Client) WaitUntil(ctx context.Context, id string, statuses []string, timeout, interval time.Duration) (Change, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last Change
	for {
		change, err := c.Change(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return last, &TimeoutError{ChangeID: id, Status: last.Status}
			}
			return last, err
		}
		last = change
		for _, status := range statuses {
			if change.Status == status {
				return change, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, &TimeoutError{ChangeID: id, Status: last.Status}
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapd %s %s: %w", method, path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		if httpResp.StatusCode >= 300 {
			return nil, &APIError{StatusCode: httpResp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		return nil, fmt.Errorf("parse response: %w (status %d)", err, httpResp.StatusCode)
	}

	if resp.Type == "error" || httpResp.StatusCode >= 300 {
		var detail errorResult
		_ = json.Unmarshal(resp.Result, &detail)
		if detail.Message == "" {
			detail.Message = httpResp.Status
		}
		return nil, &APIError{StatusCode: httpResp.StatusCode, Kind: detail.Kind, Message: detail.Message}
	}
	return &resp, nil
}
