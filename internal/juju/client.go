// Package juju drives the juju CLI for the control-plane steps.
package juju

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/sunbeam/internal/internalexec"
	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

// ReturnCodeKey is the action result field carrying the action's exit status.
const ReturnCodeKey = "return-code"

// StatusActive is the workload status of a settled application.
const StatusActive = "active"

// Cloud is one entry of `juju clouds`.
type Cloud struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Controller is one entry of `juju controllers`.
type Controller struct {
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
}

// Client runs juju commands through an internalexec.Runner.
type Client struct {
	Runner internalexec.Runner
	Binary string
	// DataDir is exported to juju as JUJU_DATA when set.
	DataDir string
}

// NewClient returns a client for binary, defaulting to "juju".
func NewClient(runner internalexec.Runner, binary, dataDir string) *Client {
	if binary == "" {
		binary = "juju"
	}
	return &Client{Runner: runner, Binary: binary, DataDir: dataDir}
}

func (c *Client) command(stream bool, args ...string) internalexec.Command {
	cmd := internalexec.Command{Name: c.Binary, Args: args, Stream: stream}
	if c.DataDir != "" {
		cmd.Env = []string{"JUJU_DATA=" + c.DataDir}
	}
	return cmd
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	res, err := c.Runner.Run(ctx, c.command(false, args...))
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

func (c *Client) runJSON(ctx context.Context, out any, args ...string) error {
	stdout, err := c.run(ctx, append(args, "--format", "json")...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stdout), out); err != nil {
		return fmt.Errorf("parse juju %s output: %w", args[0], err)
	}
	return nil
}

// Clouds returns the known clouds by name.
func (c *Client) Clouds(ctx context.Context) (map[string]Cloud, error) {
	clouds := map[string]Cloud{}
	if err := c.runJSON(ctx, &clouds, "clouds"); err != nil {
		return nil, err
	}
	return clouds, nil
}

// Controllers returns the bootstrapped controllers by name.
func (c *Client) Controllers(ctx context.Context) (map[string]Controller, error) {
	var out struct {
		Controllers map[string]Controller `json:"controllers"`
	}
	if err := c.runJSON(ctx, &out, "controllers"); err != nil {
		return nil, err
	}
	if out.Controllers == nil {
		out.Controllers = map[string]Controller{}
	}
	return out.Controllers, nil
}

// Bootstrap creates a controller on cloud.
func (c *Client) Bootstrap(ctx context.Context, cloud string) error {
	_, err := c.Runner.Run(ctx, c.command(true, "bootstrap", cloud))
	return err
}

// Models returns the short names of the models on the current controller.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var out struct {
		Models []struct {
			Name      string `json:"name"`
			ShortName string `json:"short-name"`
		} `json:"models"`
	}
	if err := c.runJSON(ctx, &out, "models"); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		name := m.ShortName
		if name == "" {
			name = m.Name[strings.LastIndex(m.Name, "/")+1:]
		}
		names = append(names, name)
	}
	return names, nil
}

// HasModel reports whether model exists.
func (c *Client) HasModel(ctx context.Context, model string) (bool, error) {
	models, err := c.Models(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range models {
		if name == model {
			return true, nil
		}
	}
	return false, nil
}

// AddModel creates model.
func (c *Client) AddModel(ctx context.Context, model string) error {
	_, err := c.run(ctx, "add-model", model)
	return err
}

// DeployBundle deploys a local bundle into model with trust.
func (c *Client) DeployBundle(ctx context.Context, model, bundle string) error {
	_, err := c.Runner.Run(ctx, c.command(true, "deploy", "--model", model, bundle, "--trust"))
	return err
}

// DestroyModel removes model and its storage without waiting.
func (c *Client) DestroyModel(ctx context.Context, model string) error {
	_, err := c.Runner.Run(ctx, c.command(true, "destroy-model", model, "--no-prompt", "--destroy-storage", "--force", "--no-wait"))
	return err
}

// ApplicationStatus maps each application in model to its current workload status.
func (c *Client) ApplicationStatus(ctx context.Context, model string) (map[string]string, error) {
	var out struct {
		Applications map[string]struct {
			ApplicationStatus struct {
				Current string `json:"current"`
			} `json:"application-status"`
		} `json:"applications"`
	}
	if err := c.runJSON(ctx, &out, "status", "--model", model); err != nil {
		return nil, err
	}

	status := make(map[string]string, len(out.Applications))
	for app, details := range out.Applications {
		status[app] = details.ApplicationStatus.Current
	}
	return status, nil
}

// WaitForActive polls ApplicationStatus every interval until every
// application is active or timeout elapses. The last observed statuses are
// returned either way; only query errors are reported. A non-positive
// timeout queries once.
func (c *Client) WaitForActive(ctx context.Context, model string, timeout, interval time.Duration) (map[string]string, error) {
	if timeout <= 0 {
		return c.ApplicationStatus(ctx, model)
	}
	if interval <= 0 {
		interval = time.Second
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last map[string]string
	for {
		status, err := c.ApplicationStatus(waitCtx, model)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil && last != nil {
				return last, nil
			}
			return last, err
		}
		last = status
		if allActive(status) {
			return status, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, nil
		case <-ticker.C:
		}
	}
}

func allActive(status map[string]string) bool {
	for _, current := range status {
		if current != StatusActive {
			return false
		}
	}
	return true
}

// RunAction runs action on the leader unit of app and returns the unit's
// results. The return-code field is normalised to an int.
func (c *Client) RunAction(ctx context.Context, model, app, action string, params map[string]string) (map[string]any, error) {
	args := []string{"run", "--model", model, app + "/leader", action}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, key+"="+params[key])
	}

	var out map[string]struct {
		Results map[string]any `json:"results"`
		Status  string         `json:"status"`
	}
	if err := c.runJSON(ctx, &out, args...); err != nil {
		return nil, sunbeamerrors.NewActionError(app, action, -1, err)
	}
	if len(out) == 0 {
		return nil, sunbeamerrors.NewActionError(app, action, -1, fmt.Errorf("no unit reported results"))
	}

	units := make([]string, 0, len(out))
	for unit := range out {
		units = append(units, unit)
	}
	sort.Strings(units)

	results := out[units[0]].Results
	if results == nil {
		results = map[string]any{}
	}
	if raw, ok := results[ReturnCodeKey]; ok {
		code, err := toInt(raw)
		if err != nil {
			return nil, sunbeamerrors.NewActionError(app, action, -1, fmt.Errorf("bad %s %v: %w", ReturnCodeKey, raw, err))
		}
		results[ReturnCodeKey] = code
	}
	return results, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// DebugLog returns the full replayed debug log of model.
func (c *Client) DebugLog(ctx context.Context, model string) (string, error) {
	return c.run(ctx, "debug-log", "--model", model, "--replay", "--no-tail")
}

// StatusText returns the plain `juju status` output of model.
func (c *Client) StatusText(ctx context.Context, model string) (string, error) {
	return c.run(ctx, "status", "--model", model)
}
