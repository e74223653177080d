// Package juju holds the control-plane steps: controller bootstrap, model
// lifecycle, bundle deployment and status reporting.
package juju

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	jujuclient "github.com/alexisbeaulieu97/sunbeam/internal/juju"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
)

const (
	// DefaultStatusTimeout bounds the wait for applications to become active.
	DefaultStatusTimeout = 30 * time.Second
	// DefaultStatusInterval is the delay between status queries.
	DefaultStatusInterval = time.Second
)

// Client is the part of the juju client used by the steps.
type Client interface {
	Clouds(ctx context.Context) (map[string]jujuclient.Cloud, error)
	Controllers(ctx context.Context) (map[string]jujuclient.Controller, error)
	Bootstrap(ctx context.Context, cloud string) error
	Models(ctx context.Context) ([]string, error)
	AddModel(ctx context.Context, model string) error
	DeployBundle(ctx context.Context, model, bundle string) error
	DestroyModel(ctx context.Context, model string) error
	WaitForActive(ctx context.Context, model string, timeout, interval time.Duration) (map[string]string, error)
	StatusText(ctx context.Context, model string) (string, error)
	DebugLog(ctx context.Context, model string) (string, error)
}

func orNop(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	return log
}

func hasModel(ctx context.Context, client Client, name string) (bool, error) {
	models, err := client.Models(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m == name {
			return true, nil
		}
	}
	return false, nil
}

// BootstrapStep bootstraps a controller onto a kubernetes cloud.
type BootstrapStep struct {
	engine.Base
	client Client
	cloud  string
	log    *logger.Logger

	controller string
}

// NewBootstrapStep returns a step bootstrapping juju onto cloud.
func NewBootstrapStep(client Client, cloud string, log *logger.Logger) *BootstrapStep {
	return &BootstrapStep{
		Base:   engine.NewBase("Bootstrap Juju", "Bootstrapping Juju into "+cloud),
		client: client,
		cloud:  cloud,
		log:    orNop(log),
	}
}

// Controller is the existing controller found by IsSkip, if any.
func (s *BootstrapStep) Controller() string { return s.controller }

// IsSkip skips when a controller already runs on any k8s cloud. Query
// failures default to bootstrapping.
func (s *BootstrapStep) IsSkip(ctx context.Context, _ console.Status) (bool, error) {
	clouds, err := s.client.Clouds(ctx)
	if err != nil {
		s.log.Warn(fmt.Sprintf("cannot list clouds, defaulting to bootstrap: %v", err))
		return false, nil
	}
	k8s := map[string]bool{}
	for name, cloud := range clouds {
		if cloud.Type == "k8s" {
			k8s[name] = true
		}
	}
	s.log.Debugf("k8s clouds available: %v", sortedKeys(k8s))

	controllers, err := s.client.Controllers(ctx)
	if err != nil {
		s.log.Warn(fmt.Sprintf("cannot list controllers, defaulting to bootstrap: %v", err))
		return false, nil
	}

	var existing []string
	for name, controller := range controllers {
		if k8s[controller.Cloud] {
			existing = append(existing, name)
		}
	}
	if len(existing) == 0 {
		return false, nil
	}
	sort.Strings(existing)
	s.controller = existing[0]
	s.log.Debugf("using existing controller %s", s.controller)
	return true, nil
}

func (s *BootstrapStep) Run(ctx context.Context, _ console.Status) model.Result {
	clouds, err := s.client.Clouds(ctx)
	if err != nil {
		return model.Failed(err.Error())
	}
	cloud, ok := clouds[s.cloud]
	if !ok || cloud.Type != "k8s" {
		s.log.Error(nil, fmt.Sprintf("could not find %s as a suitable cloud", s.cloud))
		return model.Failed("Unable to bootstrap to " + s.cloud)
	}

	if err := s.client.Bootstrap(ctx, s.cloud); err != nil {
		s.log.Error(err, "bootstrapping juju")
		return model.Failed(err.Error())
	}
	return model.Completed()
}

// CreateModelStep adds a model unless it exists.
type CreateModelStep struct {
	engine.Base
	client Client
	model  string
}

// NewCreateModelStep returns a step creating name.
func NewCreateModelStep(client Client, name string) *CreateModelStep {
	return &CreateModelStep{Base: engine.NewBase("Create model", "Creating model "+name), client: client, model: name}
}

func (s *CreateModelStep) IsSkip(ctx context.Context, _ console.Status) (bool, error) {
	return hasModel(ctx, s.client, s.model)
}

func (s *CreateModelStep) Run(ctx context.Context, _ console.Status) model.Result {
	if err := s.client.AddModel(ctx, s.model); err != nil {
		return model.Failed(err.Error())
	}
	return model.Completed()
}

// DeployBundleStep deploys the control-plane bundle. Deploying an already
// deployed bundle is a no-op for juju, so it never skips.
type DeployBundleStep struct {
	engine.Base
	client Client
	model  string
	bundle string
}

// NewDeployBundleStep returns a step deploying bundle into name.
func NewDeployBundleStep(client Client, name, bundle string) *DeployBundleStep {
	return &DeployBundleStep{Base: engine.NewBase("Deploy bundle", "Deploying bundle"), client: client, model: name, bundle: bundle}
}

func (s *DeployBundleStep) Run(ctx context.Context, _ console.Status) model.Result {
	if err := s.client.DeployBundle(ctx, s.model, s.bundle); err != nil {
		return model.Failed(err.Error())
	}
	return model.Completed()
}

// DestroyModelStep removes a model and its storage.
type DestroyModelStep struct {
	engine.Base
	client Client
	model  string
}

// NewDestroyModelStep returns a step destroying name.
func NewDestroyModelStep(client Client, name string) *DestroyModelStep {
	return &DestroyModelStep{Base: engine.NewBase("Destroy model", "Destroying model "+name), client: client, model: name}
}

// IsSkip skips when the model is already gone.
func (s *DestroyModelStep) IsSkip(ctx context.Context, _ console.Status) (bool, error) {
	ok, err := hasModel(ctx, s.client, s.model)
	return !ok, err
}

func (s *DestroyModelStep) Run(ctx context.Context, _ console.Status) model.Result {
	if err := s.client.DestroyModel(ctx, s.model); err != nil {
		return model.Failed(err.Error())
	}
	return model.Completed()
}

// ModelStatusStep reports the workload status of every application.
type ModelStatusStep struct {
	engine.Base
	client   Client
	model    string
	Timeout  time.Duration
	Interval time.Duration
	log      *logger.Logger
}

// NewModelStatusStep returns a status step for name waiting up to timeout.
func NewModelStatusStep(client Client, name string, timeout time.Duration, log *logger.Logger) *ModelStatusStep {
	return &ModelStatusStep{
		Base:     engine.NewBase("Model status", "Status of the apps in the model"),
		client:   client,
		model:    name,
		Timeout:  timeout,
		Interval: DefaultStatusInterval,
		log:      orNop(log),
	}
}

// IsSkip skips when the model does not exist.
func (s *ModelStatusStep) IsSkip(ctx context.Context, _ console.Status) (bool, error) {
	ok, err := hasModel(ctx, s.client, s.model)
	return !ok, err
}

// Run waits for the applications to settle and reports one line per
// application, sorted by name. A timeout still completes with the statuses
// observed last.
func (s *ModelStatusStep) Run(ctx context.Context, _ console.Status) model.Result {
	status, err := s.client.WaitForActive(ctx, s.model, s.Timeout, s.Interval)
	if err != nil {
		s.log.Error(err, "getting status of model")
		return model.Failed(err.Error())
	}
	if !allActive(status) {
		s.log.Info("workloads did not reach an acceptable status")
	}

	apps := make([]string, 0, len(status))
	for app := range status {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	lines := make([]string, 0, len(apps))
	for _, app := range apps {
		lines = append(lines, fmt.Sprintf("App %s is in %s state", app, status[app]))
	}
	return model.Completed(lines...)
}

func allActive(status map[string]string) bool {
	for _, state := range status {
		if state != jujuclient.StatusActive {
			return false
		}
	}
	return true
}

// WriteModelStatusStep saves `juju status` output to a file.
type WriteModelStatusStep struct {
	engine.Base
	client Client
	model  string
	path   string
}

// NewWriteModelStatusStep returns a step writing the status of name to path.
func NewWriteModelStatusStep(client Client, name, path string) *WriteModelStatusStep {
	return &WriteModelStatusStep{Base: engine.NewBase("Write model status", "Inspecting model status"), client: client, model: name, path: path}
}

func (s *WriteModelStatusStep) Run(ctx context.Context, _ console.Status) model.Result {
	text, err := s.client.StatusText(ctx, s.model)
	if err != nil {
		return model.Failed(err.Error())
	}
	return writeReport(s.path, text)
}

// WriteDebugLogStep saves the replayed model debug log to a file.
type WriteDebugLogStep struct {
	engine.Base
	client Client
	model  string
	path   string
}

// NewWriteDebugLogStep returns a step writing the debug log of name to path.
func NewWriteDebugLogStep(client Client, name, path string) *WriteDebugLogStep {
	return &WriteDebugLogStep{Base: engine.NewBase("Write debug log", "Inspecting charm logs"), client: client, model: name, path: path}
}

func (s *WriteDebugLogStep) Run(ctx context.Context, _ console.Status) model.Result {
	text, err := s.client.DebugLog(ctx, s.model)
	if err != nil {
		return model.Failed(err.Error())
	}
	return writeReport(s.path, text)
}

func writeReport(path, text string) model.Result {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return model.Failed(err.Error())
	}
	if err := os.WriteFile(path, []byte(text), 0o640); err != nil {
		return model.Failed(err.Error())
	}
	return model.Completed()
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
