package microk8s

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/sunbeam/internal/internalexec"
	"github.com/alexisbeaulieu97/sunbeam/internal/testutil/fakeexec"
)

func TestIsAddonEnabled(t *testing.T) {
	t.Parallel()

	runner := fakeexec.New().
		On("microk8s status -a dns", "enabled\n").
		On("microk8s status -a metallb", "disabled\n")
	client := NewClient(runner, "")

	enabled, err := client.IsAddonEnabled(context.Background(), "dns")
	require.NoError(t, err)
	require.True(t, enabled)

	enabled, err = client.IsAddonEnabled(context.Background(), "metallb")
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestEnableAddonAndGroup(t *testing.T) {
	t.Parallel()

	runner := fakeexec.New().
		On("microk8s enable metallb 10.20.20.1-10.20.20.2", "").
		On("sudo usermod -a -G snap_microk8s ubuntu", "")
	client := NewClient(runner, "microk8s")

	require.NoError(t, client.EnableAddon(context.Background(), "metallb", "10.20.20.1-10.20.20.2"))
	require.NoError(t, client.AddUserToGroup(context.Background(), "ubuntu"))
	require.Equal(t, []string{
		"microk8s enable metallb 10.20.20.1-10.20.20.2",
		"sudo usermod -a -G snap_microk8s ubuntu",
	}, runner.Lines())
}

func TestInGroup(t *testing.T) {
	t.Parallel()

	client := NewClient(fakeexec.New(), "")
	client.LookupGroups = func(username string) ([]string, error) {
		switch username {
		case "ubuntu":
			return []string{"ubuntu", "adm", Group}, nil
		case "guest":
			return []string{"guest"}, nil
		}
		return nil, errors.New("unknown user")
	}

	in, err := client.InGroup("ubuntu")
	require.NoError(t, err)
	require.True(t, in)

	in, err = client.InGroup("guest")
	require.NoError(t, err)
	require.False(t, in)

	_, err = client.InGroup("nobody")
	require.Error(t, err)
}

func writeScript(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o755))
	return path
}

func TestClientAgainstScript(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	binDir := t.TempDir()
	writeScript(t, binDir, "microk8s", `#!/bin/sh
case "$1" in
status)
  if [ "$3" = "dns" ]; then echo enabled; else echo disabled; fi ;;
enable)
  echo "Enabling $2"
  [ "$2" != "broken" ] || { echo "addon broken not found" >&2; exit 1; } ;;
esac
`)
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	var out bytes.Buffer
	client := NewClient(&internalexec.OSRunner{Stdout: &out, Stderr: &out}, "")

	enabled, err := client.IsAddonEnabled(context.Background(), "dns")
	require.NoError(t, err)
	require.True(t, enabled)

	enabled, err = client.IsAddonEnabled(context.Background(), "hostpath-storage")
	require.NoError(t, err)
	require.False(t, enabled)

	require.NoError(t, client.EnableAddon(context.Background(), "hostpath-storage"))
	require.Contains(t, out.String(), "Enabling hostpath-storage")

	err = client.EnableAddon(context.Background(), "broken")
	var exitErr *internalexec.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.Result.ExitCode)
}
