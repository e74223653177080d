package main

import (
	"path/filepath"

	"github.com/alexisbeaulieu97/sunbeam/internal/config"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	cloudsteps "github.com/alexisbeaulieu97/sunbeam/internal/steps/cloud"
	hvsteps "github.com/alexisbeaulieu97/sunbeam/internal/steps/hypervisor"
	jujusteps "github.com/alexisbeaulieu97/sunbeam/internal/steps/juju"
	mk8ssteps "github.com/alexisbeaulieu97/sunbeam/internal/steps/microk8s"
	snapsteps "github.com/alexisbeaulieu97/sunbeam/internal/steps/snap"
)

// HypervisorSnap is the compute node snap.
const HypervisorSnap = "openstack-hypervisor"

func (a *AppContext) installStep(name string, snap config.SnapConfig) engine.Step {
	step := snapsteps.NewInstallStep(a.Snapd(), name, snap.Channel, snap.MinVersion, a.Logger)
	step.Timeout = a.Config.Timeouts.SnapChange
	return step
}

func (a *AppContext) controlPlaneSteps() []engine.Step {
	cp := a.Config.ControlPlane
	client := a.Juju()
	return []engine.Step{
		jujusteps.NewBootstrapStep(client, cp.Cloud, a.Logger),
		jujusteps.NewCreateModelStep(client, cp.Model),
		jujusteps.NewDeployBundleStep(client, cp.Model, cp.Bundle),
	}
}

func (a *AppContext) initPlan(role config.Role, user string) []engine.Step {
	var plan []engine.Step
	if role.IsControl() {
		mk8s := a.Microk8s()
		plan = append(plan,
			a.installStep("juju", a.Config.Snaps.Juju),
			a.installStep("microk8s", a.Config.Snaps.Microk8s),
			mk8ssteps.NewAddUserToGroupStep(mk8s, user, a.Logger),
		)
		plan = append(plan, mk8ssteps.AddonSteps(mk8s, a.Logger, a.Config.Microk8s.MetalLBRange)...)
		plan = append(plan, a.controlPlaneSteps()...)
	}
	if role.IsCompute() {
		plan = append(plan, a.installStep(HypervisorSnap, a.Config.Snaps.Hypervisor))
	}
	return plan
}

func (a *AppContext) hypervisorDeps() hvsteps.Deps {
	return hvsteps.Deps{
		Settings: a.Hypervisor(),
		Actions:  a.Juju(),
		Model:    a.Config.ControlPlane.Model,
		Host:     hvsteps.SystemHost(),
		Logger:   a.Logger,
	}
}

func (a *AppContext) bootstrapPlan(role config.Role) []engine.Step {
	var plan []engine.Step
	if role.IsControl() {
		plan = append(plan, a.controlPlaneSteps()...)
	}
	if role.IsCompute() {
		plan = append(plan, hvsteps.BootstrapSteps(a.hypervisorDeps())...)
	}
	return plan
}

func (a *AppContext) plansCacheDir() string {
	return filepath.Join(a.Config.Paths.State, "cache", "plans")
}

func (a *AppContext) syncPlan() []engine.Step {
	return []engine.Step{
		cloudsteps.NewSyncPlansStep(a.Config.Paths.Plans, a.Config.ConfigureDir(), a.plansCacheDir(), a.Logger),
	}
}

func (a *AppContext) configurePlan(role config.Role, creds cloudsteps.Credentials, preseed, openrc string) []engine.Step {
	tf := a.Terraform()
	dir := a.Config.ConfigureDir()
	plan := []engine.Step{
		cloudsteps.NewInitTerraformStep(tf, dir, a.Logger),
		cloudsteps.NewConfigureCloudStep(tf, creds, cloudsteps.ConfigureOptions{
			Dir:         dir,
			AnswersFile: a.Config.AnswersFile(),
			PreseedFile: preseed,
			Logger:      a.Logger,
		}),
		cloudsteps.NewUserOpenRCStep(tf, dir, creds, openrc, a.Logger),
	}
	if role.IsCompute() {
		plan = append(plan, hvsteps.NewExternalNetworkStep(a.Hypervisor(), a.Config.AnswersFile(), a.Logger))
	}
	return plan
}

func (a *AppContext) resetPlan(role config.Role) []engine.Step {
	var plan []engine.Step
	if role.IsControl() {
		plan = append(plan,
			jujusteps.NewDestroyModelStep(a.Juju(), a.Config.ControlPlane.Model),
			cloudsteps.NewPurgeStateStep(a.Config.ConfigureDir()),
		)
	}
	if role.IsCompute() {
		plan = append(plan, hvsteps.NewResetStep(a.Hypervisor()))
	}
	return plan
}

func (a *AppContext) inspectPlan(dir string) []engine.Step {
	client := a.Juju()
	model := a.Config.ControlPlane.Model
	return []engine.Step{
		jujusteps.NewWriteModelStatusStep(client, model, filepath.Join(dir, "juju_status.out")),
		jujusteps.NewWriteDebugLogStep(client, model, filepath.Join(dir, "debug_log.out")),
	}
}
