// Package microk8s drives the microk8s CLI.
package microk8s

import (
	"context"
	"fmt"
	"os/user"
	"strings"

	"github.com/alexisbeaulieu97/sunbeam/internal/internalexec"
)

// Group is the unix group that may use microk8s without sudo.
const Group = "snap_microk8s"

// Client runs microk8s commands through an internalexec.Runner.
type Client struct {
	Runner internalexec.Runner
	Binary string
	// LookupGroups returns the group names of a user; os/user is used when nil.
	LookupGroups func(username string) ([]string, error)
}

// NewClient returns a client for binary, defaulting to "microk8s".
func NewClient(runner internalexec.Runner, binary string) *Client {
	if binary == "" {
		binary = "microk8s"
	}
	return &Client{Runner: runner, Binary: binary}
}

// IsAddonEnabled reports whether `microk8s status -a <addon>` prints "enabled".
func (c *Client) IsAddonEnabled(ctx context.Context, addon string) (bool, error) {
	res, err := c.Runner.Run(ctx, internalexec.Command{Name: c.Binary, Args: []string{"status", "-a", addon}})
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(res.Stdout) == "enabled", nil
}

// EnableAddon enables addon with optional arguments.
func (c *Client) EnableAddon(ctx context.Context, addon string, args ...string) error {
	cmdArgs := append([]string{"enable", addon}, args...)
	_, err := c.Runner.Run(ctx, internalexec.Command{Name: c.Binary, Args: cmdArgs, Stream: true})
	return err
}

// AddUserToGroup adds username to the microk8s group.
func (c *Client) AddUserToGroup(ctx context.Context, username string) error {
	_, err := c.Runner.Run(ctx, internalexec.Command{Name: "sudo", Args: []string{"usermod", "-a", "-G", Group, username}})
	return err
}

// InGroup reports whether username belongs to the microk8s group.
func (c *Client) InGroup(username string) (bool, error) {
	lookup := c.LookupGroups
	if lookup == nil {
		lookup = userGroups
	}
	groups, err := lookup(username)
	if err != nil {
		return false, err
	}
	for _, name := range groups {
		if name == Group {
			return true, nil
		}
	}
	return false, nil
}

func userGroups(username string) ([]string, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", username, err)
	}
	ids, err := u.GroupIds()
	if err != nil {
		return nil, fmt.Errorf("list groups of %s: %w", username, err)
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		g, err := user.LookupGroupId(id)
		if err != nil {
			continue
		}
		names = append(names, g.Name)
	}
	return names, nil
}
