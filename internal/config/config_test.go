package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, filepath.Join(home, FileName), cfg.File)
	require.Equal(t, home, cfg.Paths.State)
	require.Equal(t, "microk8s", cfg.ControlPlane.Cloud)
	require.Equal(t, "openstack", cfg.ControlPlane.Model)
	require.Equal(t, "latest/stable", cfg.Snaps.Juju.Channel)
	require.Equal(t, "latest/stable", cfg.Snaps.Hypervisor.Channel)
	require.Equal(t, "10.20.20.1-10.20.20.2", cfg.Microk8s.MetalLBRange)
	require.Equal(t, "/run/snapd.socket", cfg.Snapd.Socket)
	require.Equal(t, 30*time.Second, cfg.Timeouts.ModelStatus)
	require.Equal(t, 180*time.Second, cfg.Timeouts.SnapChange)
	require.Equal(t, Role(""), cfg.Node.Role)

	require.Equal(t, filepath.Join(home, "etc", "configure"), cfg.ConfigureDir())
	require.Equal(t, filepath.Join(home, "etc", "configure", AnswersFileName), cfg.AnswersFile())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	t.Setenv("SUNBEAM_JUJU_BINARY", "/opt/juju/bin/juju")

	path := writeConfig(t, t.TempDir(), `
node:
  role: converged
control_plane:
  model: lab
timeouts:
  model_status: 5s
snaps:
  microk8s:
    channel: 1.25-strict/stable
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, path, cfg.File)
	require.Equal(t, RoleConverged, cfg.Node.Role)
	require.Equal(t, "lab", cfg.ControlPlane.Model)
	require.Equal(t, "microk8s", cfg.ControlPlane.Cloud)
	require.Equal(t, 5*time.Second, cfg.Timeouts.ModelStatus)
	require.Equal(t, "1.25-strict/stable", cfg.Snaps.Microk8s.Channel)
	require.Equal(t, "/opt/juju/bin/juju", cfg.Juju.Binary)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	t.Run("explicit file missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		var parseErr *sunbeamerrors.ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "node: [unterminated\n")
		_, err := Load(path)
		var parseErr *sunbeamerrors.ParseError
		require.ErrorAs(t, err, &parseErr)
		require.Equal(t, path, parseErr.Path)
	})

	t.Run("not a mapping", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "- control\n- compute\n")
		_, err := Load(path)
		var parseErr *sunbeamerrors.ParseError
		require.ErrorAs(t, err, &parseErr)
		require.Equal(t, 1, parseErr.Line)
	})

	t.Run("unknown role", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "node:\n  role: storage\n")
		_, err := Load(path)
		var validationErr *sunbeamerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, validationErr.Field, "Role")
	})

	t.Run("bad channel", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "snaps:\n  juju:\n    channel: \"Latest Stable\"\n")
		_, err := Load(path)
		var validationErr *sunbeamerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, validationErr.Field, "Channel")
	})

	t.Run("bad min version", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "snaps:\n  hypervisor:\n    min_version: latest\n")
		_, err := Load(path)
		var validationErr *sunbeamerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, validationErr.Field, "MinVersion")
	})
}

func TestSaveRoleKeepsOtherKeys(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	path := writeConfig(t, t.TempDir(), "control_plane:\n  model: lab\n")
	require.NoError(t, SaveRole(path, RoleCompute))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, RoleCompute, cfg.Node.Role)
	require.Equal(t, "lab", cfg.ControlPlane.Model)
}

func TestSaveRoleCreatesFile(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	path := filepath.Join(t.TempDir(), "nested", FileName)
	require.NoError(t, SaveRole(path, RoleControl))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Node.Role.IsControl())
	require.False(t, cfg.Node.Role.IsCompute())
}

func TestSaveRoleRejectsUnknownRole(t *testing.T) {
	err := SaveRole(filepath.Join(t.TempDir(), FileName), Role("storage"))
	var validationErr *sunbeamerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
