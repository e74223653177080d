// Package microk8s holds the steps preparing the microk8s cluster.
package microk8s

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
)

// Add-ons enabled during init, in order.
const (
	AddonHA      = "ha-cluster"
	AddonDNS     = "dns"
	AddonStorage = "hostpath-storage"
	AddonMetalLB = "metallb"
)

// DefaultMetalLBRange is the load balancer address pool.
const DefaultMetalLBRange = "10.20.20.1-10.20.20.2"

// Client is the part of the microk8s client used by the steps.
type Client interface {
	IsAddonEnabled(ctx context.Context, addon string) (bool, error)
	EnableAddon(ctx context.Context, addon string, args ...string) error
	AddUserToGroup(ctx context.Context, username string) error
	InGroup(username string) (bool, error)
}

// AddonStep enables one microk8s add-on.
type AddonStep struct {
	engine.Base
	client Client
	addon  string
	args   []string
	log    *logger.Logger
}

// NewAddonStep returns a step enabling addon with args.
func NewAddonStep(client Client, log *logger.Logger, addon string, args ...string) *AddonStep {
	if log == nil {
		log = logger.Nop()
	}
	return &AddonStep{
		Base:   engine.NewBase("Enable microk8s "+addon, fmt.Sprintf("Enabling microk8s %s add-on", addon)),
		client: client,
		addon:  addon,
		args:   args,
		log:    log.WithFields(map[string]any{"addon": addon}),
	}
}

// AddonSteps returns the init add-ons: HA, DNS, storage and metallb over metallbRange.
func AddonSteps(client Client, log *logger.Logger, metallbRange string) []engine.Step {
	if metallbRange == "" {
		metallbRange = DefaultMetalLBRange
	}
	return []engine.Step{
		NewAddonStep(client, log, AddonHA),
		NewAddonStep(client, log, AddonDNS),
		NewAddonStep(client, log, AddonStorage),
		NewAddonStep(client, log, AddonMetalLB, metallbRange),
	}
}

// IsSkip skips an enabled add-on. A failing status query means the add-on
// is treated as disabled.
func (s *AddonStep) IsSkip(ctx context.Context, _ console.Status) (bool, error) {
	enabled, err := s.client.IsAddonEnabled(ctx, s.addon)
	if err != nil {
		s.log.Warn(fmt.Sprintf("error determining %s add-on status: %v", s.addon, err))
		return false, nil
	}
	return enabled, nil
}

func (s *AddonStep) Run(ctx context.Context, _ console.Status) model.Result {
	if err := s.client.EnableAddon(ctx, s.addon, s.args...); err != nil {
		s.log.Error(err, "enabling add-on")
		return model.Failed(fmt.Sprintf("Error enabling microk8s add-on %s", s.addon))
	}
	return model.Completed()
}

// AddUserToGroupStep grants a user access to microk8s.
type AddUserToGroupStep struct {
	engine.Base
	client Client
	user   string
	log    *logger.Logger
}

// NewAddUserToGroupStep returns a step adding user to the microk8s group.
func NewAddUserToGroupStep(client Client, user string, log *logger.Logger) *AddUserToGroupStep {
	if log == nil {
		log = logger.Nop()
	}
	return &AddUserToGroupStep{
		Base:   engine.NewBase("Ensure microk8s access", "Provide microk8s access to user"),
		client: client,
		user:   user,
		log:    log,
	}
}

// IsSkip skips when the user already belongs to the group.
func (s *AddUserToGroupStep) IsSkip(_ context.Context, _ console.Status) (bool, error) {
	if s.user == "" {
		return false, fmt.Errorf("cannot determine the current user")
	}
	in, err := s.client.InGroup(s.user)
	if err != nil {
		s.log.Warn(fmt.Sprintf("cannot read groups of %s: %v", s.user, err))
		return false, nil
	}
	return in, nil
}

func (s *AddUserToGroupStep) Run(ctx context.Context, _ console.Status) model.Result {
	if err := s.client.AddUserToGroup(ctx, s.user); err != nil {
		s.log.Error(err, "adding user to group")
		return model.Failed("Adding user to snap_microk8s group failed")
	}
	return model.Completed()
}
