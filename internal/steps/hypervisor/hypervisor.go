// Package hypervisor holds the compute-node steps that converge the
// openstack-hypervisor settings with the control plane.
package hypervisor

import (
	"context"
	"strings"

	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	hv "github.com/alexisbeaulieu97/sunbeam/internal/hypervisor"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/netutil"
	"github.com/alexisbeaulieu97/sunbeam/internal/reconcile"
)

// ActionRunner runs juju actions on an application's leader.
type ActionRunner interface {
	RunAction(ctx context.Context, model, app, action string, params map[string]string) (map[string]any, error)
}

// Host describes the local machine.
type Host struct {
	Hostname func() (string, error)
	FQDN     func() (string, error)
	LocalIP  func() (string, error)
	LocalIPs func() ([]string, error)
}

// SystemHost reads the identity of this machine.
func SystemHost() Host {
	return Host{
		Hostname: netutil.Hostname,
		FQDN:     netutil.FQDN,
		LocalIP:  netutil.LocalIPByDefaultRoute,
		LocalIPs: netutil.LocalIPAddresses,
	}
}

// Deps are the collaborators shared by the reconciliation steps.
type Deps struct {
	Settings hv.Settings
	Actions  ActionRunner
	Model    string
	Host     Host
	Logger   *logger.Logger
}

func actionSource(d Deps, app, action string, params func() (map[string]string, error)) reconcile.Source {
	return reconcile.Source{
		Name: app + " " + action,
		Fetch: func(ctx context.Context) (reconcile.Values, error) {
			args := map[string]string{}
			if params != nil {
				var err error
				if args, err = params(); err != nil {
					return nil, err
				}
			}
			results, err := d.Actions.RunAction(ctx, d.Model, app, action, args)
			if err != nil {
				return nil, err
			}
			return reconcile.Values(results), nil
		},
	}
}

// NewIdentityStep points the hypervisor at keystone with a service account
// named after this host.
func NewIdentityStep(d Deps) *reconcile.Step {
	src := actionSource(d, "keystone", "get-service-account", func() (map[string]string, error) {
		hostname, err := d.Host.Hostname()
		if err != nil {
			return nil, err
		}
		return map[string]string{"username": hostname}, nil
	})
	src.Aliases = map[string]string{"public-endpoint": "auth-url", "region": "region-name"}

	return reconcile.New(reconcile.Spec{
		Name:        "Update Identity Config",
		Description: "Updating hypervisor identity configuration",
		Target:      hv.Section(d.Settings, hv.SectionIdentity),
		Sources:     []reconcile.Source{src},
		Fields: []string{
			"auth-url", "username", "password", "user-domain-name",
			"project-name", "project-domain-name", "region-name",
		},
		Logger: d.Logger,
	})
}

// NewRabbitMQStep points the hypervisor at the message broker.
func NewRabbitMQStep(d Deps) *reconcile.Step {
	src := actionSource(d, "rabbitmq", "get-service-account", func() (map[string]string, error) {
		return map[string]string{"username": "nova", "vhost": "openstack"}, nil
	})

	return reconcile.New(reconcile.Spec{
		Name:        "Update RabbitMQ Config",
		Description: "Updating hypervisor RabbitMQ configuration",
		Target:      hv.Section(d.Settings, hv.SectionRabbitMQ),
		Sources:     []reconcile.Source{src},
		Fields:      []string{"url"},
		Logger:      d.Logger,
	})
}

// NewNetworkStep configures the OVN southbound connection and a client
// certificate issued for this host.
func NewNetworkStep(d Deps) *reconcile.Step {
	relay := actionSource(d, "ovn-relay", "get-southbound-db-url", nil)
	relay.Aliases = map[string]string{"url": "ovn-sb-connection"}

	vault := actionSource(d, "vault", "generate-certificate", func() (map[string]string, error) {
		fqdn, err := d.Host.FQDN()
		if err != nil {
			return nil, err
		}
		ips, err := d.Host.LocalIPs()
		if err != nil {
			return nil, err
		}
		return map[string]string{"cn": fqdn, "sans": strings.Join(ips, " "), "type": "client"}, nil
	})
	vault.Transform = reconcile.Base64Fields(map[string]string{
		"private-key": "ovn-key",
		"certificate": "ovn-cert",
		"issuing-ca":  "ovn-cacert",
	})

	return reconcile.New(reconcile.Spec{
		Name:        "Update Network Config",
		Description: "Updating hypervisor OVN configuration",
		Target:      hv.Section(d.Settings, hv.SectionNetwork),
		Sources:     []reconcile.Source{relay, vault},
		Fields:      []string{"ovn-sb-connection", "ovn-key", "ovn-cert", "ovn-cacert"},
		Logger:      d.Logger,
	})
}

// NewNodeStep records this host's FQDN and address.
func NewNodeStep(d Deps) *reconcile.Step {
	src := reconcile.StaticSource("local node", func() (reconcile.Values, error) {
		fqdn, err := d.Host.FQDN()
		if err != nil {
			return nil, err
		}
		ip, err := d.Host.LocalIP()
		if err != nil {
			return nil, err
		}
		return reconcile.Values{"fqdn": fqdn, "ip-address": ip}, nil
	})

	return reconcile.New(reconcile.Spec{
		Name:        "Update Node Config",
		Description: "Updating hypervisor Node configuration",
		Target:      hv.Section(d.Settings, hv.SectionNode),
		Sources:     []reconcile.Source{src},
		Fields:      []string{"fqdn", "ip-address"},
		Logger:      d.Logger,
	})
}

// BootstrapSteps returns the compute-node plan of the bootstrap command.
func BootstrapSteps(d Deps) []engine.Step {
	return []engine.Step{
		NewIdentityStep(d),
		NewRabbitMQStep(d),
		NewNetworkStep(d),
		NewNodeStep(d),
	}
}
