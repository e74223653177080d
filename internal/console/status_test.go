package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlainStatusWritesOneLinePerStep(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	status := NewPlainStatus(buf)

	status.Start("Bootstrapping Juju onto the cloud ... ")
	status.Update("still bootstrapping")
	status.Stop()
	status.Resume()
	status.Done("Bootstrapping Juju onto the cloud ... ")
	status.Skipped("Creating model ... ")
	status.Failed("Deploying bundle ... ")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Bootstrapping Juju onto the cloud ... ")
	require.Contains(t, lines[0], "done")
	require.Contains(t, lines[1], "skipped")
	require.Contains(t, lines[2], "failed")
}

func TestSpinnerModelLifecycle(t *testing.T) {
	t.Parallel()

	m := newSpinnerModel("Enabling DNS ... ")
	require.NotNil(t, m.Init())
	require.Contains(t, m.View(), "Enabling DNS ... ")

	updated, cmd := m.Update(statusMsg("Enabling DNS (waiting) ... "))
	require.Nil(t, cmd)
	m = updated.(spinnerModel)
	require.Contains(t, m.View(), "waiting")

	updated, cmd = m.Update(m.spinner.Tick())
	require.NotNil(t, cmd)
	m = updated.(spinnerModel)

	updated, cmd = m.Update(stopMsg{})
	require.NotNil(t, cmd)
	m = updated.(spinnerModel)
	require.True(t, m.quitting)
	require.Equal(t, "", m.View())
}

func TestSpinnerStatusPrintsFinalLine(t *testing.T) {
	buf := &bytes.Buffer{}
	status := NewSpinnerStatus(buf)

	status.Start("Creating model ... ")
	status.Update("Creating model openstack ... ")
	status.Stop()
	status.Resume()
	status.Done("Creating model ... ")

	require.Nil(t, status.program)
	require.Contains(t, buf.String(), "Creating model ... ")
	require.Contains(t, buf.String(), "done")
}

func TestApplicationLine(t *testing.T) {
	t.Parallel()

	require.Contains(t, ApplicationLine("App keystone is in active state"), "keystone")
	require.Contains(t, ApplicationLine("App nova is in blocked state"), "nova")
}
