// Package terraform runs terraform against a plan directory.
package terraform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexisbeaulieu97/sunbeam/internal/internalexec"
)

// Output is one value of `terraform output -json`.
type Output struct {
	Sensitive bool            `json:"sensitive"`
	Type      json.RawMessage `json:"type"`
	Value     any             `json:"value"`
}

// String renders the value, or "" when it is absent.
func (o Output) String() string {
	if o.Value == nil {
		return ""
	}
	if s, ok := o.Value.(string); ok {
		return s
	}
	return fmt.Sprint(o.Value)
}

// Client runs the terraform binary through an internalexec.Runner.
type Client struct {
	Runner internalexec.Runner
	Binary string
}

// NewClient returns a client for binary, defaulting to "terraform".
func NewClient(runner internalexec.Runner, binary string) *Client {
	if binary == "" {
		binary = "terraform"
	}
	return &Client{Runner: runner, Binary: binary}
}

// Init runs `terraform init` in dir.
func (c *Client) Init(ctx context.Context, dir string) (internalexec.Result, error) {
	return c.Runner.Run(ctx, internalexec.Command{Name: c.Binary, Args: []string{"init"}, Dir: dir})
}

// Apply runs `terraform apply -auto-approve` in dir with env added to the child environment.
func (c *Client) Apply(ctx context.Context, dir string, env []string) (internalexec.Result, error) {
	return c.Runner.Run(ctx, internalexec.Command{Name: c.Binary, Args: []string{"apply", "-auto-approve"}, Dir: dir, Env: env})
}

// Output returns the outputs of the state in dir.
func (c *Client) Output(ctx context.Context, dir string) (map[string]Output, error) {
	res, err := c.Runner.Run(ctx, internalexec.Command{Name: c.Binary, Args: []string{"output", "-json"}, Dir: dir})
	if err != nil {
		return nil, err
	}

	outputs := map[string]Output{}
	if err := json.Unmarshal([]byte(res.Stdout), &outputs); err != nil {
		return nil, fmt.Errorf("parse terraform output: %w", err)
	}
	return outputs, nil
}
