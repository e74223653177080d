// Package snap holds the steps that install the snaps a node depends on.
package snap

import (
	"context"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
	"github.com/alexisbeaulieu97/sunbeam/internal/snapd"
	"github.com/alexisbeaulieu97/sunbeam/internal/version"
)

const (
	// DefaultChannel is used when no channel is configured.
	DefaultChannel = "latest/stable"
	// DefaultChangeTimeout bounds the wait for an install to settle.
	DefaultChangeTimeout = 180 * time.Second
	// DefaultPollInterval is the delay between change status queries.
	DefaultPollInterval = time.Second
)

// Snapd is the part of the snapd client used to install snaps.
type Snapd interface {
	Installed(ctx context.Context, names ...string) ([]snapd.Snap, error)
	Install(ctx context.Context, name, channel string) (string, error)
	WaitUntil(ctx context.Context, id string, statuses []string, timeout, interval time.Duration) (snapd.Change, error)
}

// InstallStep installs Snap from Channel unless an acceptable version is
// already present.
type InstallStep struct {
	engine.Base

	Snapd      Snapd
	Snap       string
	Channel    string
	MinVersion string
	Timeout    time.Duration
	Interval   time.Duration
	Logger     *logger.Logger

	installed        bool
	installedVersion string
}

// NewInstallStep returns a step installing name from channel.
func NewInstallStep(client Snapd, name, channel, minVersion string, log *logger.Logger) *InstallStep {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logger.Nop()
	}
	return &InstallStep{
		Base:       engine.NewBase("Install "+name, "Installing "+name),
		Snapd:      client,
		Snap:       name,
		Channel:    channel,
		MinVersion: minVersion,
		Timeout:    DefaultChangeTimeout,
		Interval:   DefaultPollInterval,
		Logger:     log.WithFields(map[string]any{"snap": name}),
	}
}

// IsSkip skips when exactly one copy of the snap is installed at or above
// MinVersion. Several installed instances, or one that is too old, are errors.
// An installed snap with an unreadable version is accepted and skipped.
func (s *InstallStep) IsSkip(ctx context.Context, status console.Status) (bool, error) {
	status.Update(fmt.Sprintf("Checking for installed %s", s.Snap))

	snaps, err := s.Snapd.Installed(ctx, s.Snap)
	if err != nil {
		return false, fmt.Errorf("query installed snaps: %w", err)
	}
	if len(snaps) == 0 {
		s.Logger.Debug("snap is not installed")
		return false, nil
	}
	if len(snaps) > 1 {
		return false, fmt.Errorf("found %d %s snaps already installed, only one installed %s snap is allowed", len(snaps), s.Snap, s.Snap)
	}

	s.installed = true
	s.installedVersion = snaps[0].Version
	status.Update(fmt.Sprintf("Found %s version %s", s.Snap, s.installedVersion))

	ok, err := version.AtLeast(s.installedVersion, s.MinVersion)
	if err != nil {
		s.Logger.Warn(fmt.Sprintf("cannot parse installed version %q: %v", s.installedVersion, err))
		return true, nil
	}
	if !ok {
		return false, fmt.Errorf("the installed version of %s (%s) is too old, install %s or newer and try again", s.Snap, s.installedVersion, s.MinVersion)
	}
	return true, nil
}

// HasPrompts asks for confirmation only when the snap is missing.
func (s *InstallStep) HasPrompts() bool {
	return !s.installed
}

// Prompt confirms the installation.
func (s *InstallStep) Prompt(ctx context.Context, prompter console.Prompter) error {
	ok, err := prompter.Confirm(ctx, fmt.Sprintf("Install %s onto this machine?", s.Snap), true)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s needs to be installed to continue", s.Snap)
	}
	return nil
}

// Run installs the snap and waits for snapd to report the change settled.
func (s *InstallStep) Run(ctx context.Context, status console.Status) model.Result {
	if s.installed {
		s.Logger.Debug("snap already installed, nothing to do")
		return model.Completed()
	}

	status.Update(fmt.Sprintf("Installing %s from channel %s", s.Snap, s.Channel))
	changeID, err := s.Snapd.Install(ctx, s.Snap, s.Channel)
	if err != nil {
		s.Logger.Error(err, "install request failed")
		return model.Failed(fmt.Sprintf("Error occurred installing %s: %v", s.Snap, err))
	}
	s.Logger.WithFields(map[string]any{"change": changeID}).Debug("initiated installation")

	change, err := s.Snapd.WaitUntil(ctx, changeID, []string{snapd.StatusDone, snapd.StatusError}, s.Timeout, s.Interval)
	if err != nil {
		s.Logger.Error(err, "waiting for install")
		return model.Failed(fmt.Sprintf("Error occurred installing %s: %v", s.Snap, err))
	}
	if change.Status == snapd.StatusError {
		msg := fmt.Sprintf("Error occurred installing %s", s.Snap)
		if change.Err != "" {
			msg += ": " + change.Err
		}
		return model.Failed(msg)
	}
	return model.Completed()
}
