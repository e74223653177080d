package hypervisor

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	hv "github.com/alexisbeaulieu97/sunbeam/internal/hypervisor"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
	"github.com/alexisbeaulieu97/sunbeam/internal/netutil"
	"github.com/alexisbeaulieu97/sunbeam/internal/questions"
	"github.com/alexisbeaulieu97/sunbeam/internal/reconcile"
)

// UnsetBridgeAddress disables host-only access to the external network.
const UnsetBridgeAddress = "0.0.0.0/0"

// ExternalNetworkStep gives the local host access to floating IPs when
// host-only networking was chosen during configure.
type ExternalNetworkStep struct {
	engine.Base
	settings    hv.Settings
	answersFile string
	log         *logger.Logger

	update   reconcile.Values
	prepared bool
}

// NewExternalNetworkStep returns a step reading the external_network
// answers from answersFile.
func NewExternalNetworkStep(settings hv.Settings, answersFile string, log *logger.Logger) *ExternalNetworkStep {
	if log == nil {
		log = logger.Nop()
	}
	return &ExternalNetworkStep{
		Base:        engine.NewBase("Update External Network Config", "Updating hypervisor external network configuration"),
		settings:    settings,
		answersFile: answersFile,
		log:         log,
	}
}

func (s *ExternalNetworkStep) HasPrompts() bool { return true }

// Prompt computes the bridge address and physical network from the stored
// answers. It asks nothing itself; the answers were collected by configure.
func (s *ExternalNetworkStep) Prompt(ctx context.Context, _ console.Prompter) error {
	return s.prepare(ctx)
}

func (s *ExternalNetworkStep) prepare(ctx context.Context) error {
	current, err := s.settings.Get(ctx, hv.SectionNetwork)
	if err != nil {
		return fmt.Errorf("read network configuration: %w", err)
	}

	answers, err := questions.LoadAnswers(s.answersFile)
	if err != nil {
		return err
	}
	ext := questions.SectionOf(answers, "external_network")

	var enable bool
	if raw, ok := ext["enable_host_only_networking"]; ok {
		enable = questions.AsBool(raw)
	} else {
		s.log.Warn("failed to find external_network.enable_host_only_networking answer")
		enable = questions.AsString(current["external-bridge-address"]) != UnsetBridgeAddress
	}

	update := current.Clone()
	if enable {
		address, err := netutil.BridgeAddress(questions.AsString(ext["gateway"]), questions.AsString(ext["cidr"]))
		if err != nil {
			return fmt.Errorf("external network: %w", err)
		}
		update["external-bridge-address"] = address
	} else {
		update["external-bridge-address"] = UnsetBridgeAddress
	}
	update["physnet-name"] = ext["physical_network"]

	s.update = update
	s.prepared = true
	return nil
}

func (s *ExternalNetworkStep) Run(ctx context.Context, _ console.Status) model.Result {
	if !s.prepared {
		if err := s.prepare(ctx); err != nil {
			return model.Failed(err.Error())
		}
	}

	s.log.Debugf("external bridge address %v, physnet %v", s.update["external-bridge-address"], s.update["physnet-name"])
	if _, err := s.settings.Update(ctx, hv.SectionNetwork, s.update); err != nil {
		s.log.Error(err, "setting config for openstack-hypervisor")
		return model.Failed(err.Error())
	}
	return model.Completed()
}

// Resetter restores the hypervisor defaults.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ResetStep resets every hypervisor setting to its default.
type ResetStep struct {
	engine.Base
	client Resetter
}

// NewResetStep returns a step resetting the hypervisor configuration.
func NewResetStep(client Resetter) *ResetStep {
	return &ResetStep{
		Base:   engine.NewBase("Reset hypervisor", "Resetting openstack-hypervisor configuration to defaults"),
		client: client,
	}
}

func (s *ResetStep) Run(ctx context.Context, _ console.Status) model.Result {
	if err := s.client.Reset(ctx); err != nil {
		return model.Failed(err.Error())
	}
	return model.Completed()
}
