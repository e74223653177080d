package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/sunbeam/internal/config"
	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	cloudsteps "github.com/alexisbeaulieu97/sunbeam/internal/steps/cloud"
	"github.com/alexisbeaulieu97/sunbeam/internal/testutil/fakeexec"
	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

func executeCommand(args ...string) (string, error) {
	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestInitRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	_, err := executeCommand("init", "--role", "storage")
	var verr *sunbeamerrors.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "role", verr.Field)
}

func TestParseRoleFlag(t *testing.T) {
	t.Parallel()

	role, err := parseRoleFlag("Compute")
	require.NoError(t, err)
	require.Equal(t, config.RoleCompute, role)
}

func TestConfigureValidatesFlags(t *testing.T) {
	t.Parallel()

	_, err := executeCommand("configure", "-p", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "preseed file does not exist")

	_, err = executeCommand("configure", "-o", filepath.Join(t.TempDir(), "nope", "openrc"))
	require.ErrorContains(t, err, "does not exist")
}

func TestValidateFlagsAcceptEmptyAndExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	preseed := filepath.Join(dir, "preseed.yaml")
	require.NoError(t, os.WriteFile(preseed, []byte("user: {}\n"), 0o600))

	require.NoError(t, validatePreseedFlag(""))
	require.NoError(t, validatePreseedFlag(preseed))
	require.Error(t, validatePreseedFlag(dir))
	require.NoError(t, validateOpenRCFlag(""))
	require.NoError(t, validateOpenRCFlag(filepath.Join(dir, "demo-openrc")))
}

func TestExitMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Error: external action failed",
		exitMessage(sunbeamerrors.NewStepError("Update RabbitMQ Config", "external action failed", nil)))
	require.Equal(t, "Error: boom", exitMessage(errors.New("boom")))
}

func TestRenderStatus(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	renderStatus(buf, []string{"App keystone is in active state", "App nova is in blocked state"})

	out := buf.String()
	require.Contains(t, out, "Sunbeam status:")
	require.Contains(t, out, console.ApplicationLine("App keystone is in active state"))
	require.Contains(t, out, console.ApplicationLine("App nova is in blocked state"))
}

func TestReportName(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 14, 9, 5, 3, 0, time.UTC)
	require.Equal(t, "sunbeam-inspection-report-20261014_090503.tar.gz", reportName(now))
}

func TestWriteArchive(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "juju_status.out"), []byte("status"), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(src, "debug_log.out"), []byte("log"), 0o640))

	dst := filepath.Join(t.TempDir(), "report.tar.gz")
	require.NoError(t, writeArchive(dst, src))

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := map[string]string{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = string(data)
	}
	require.Equal(t, map[string]string{"./juju_status.out": "status", "./debug_log.out": "log"}, files)
}

func testApp(t *testing.T, role string) *AppContext {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sunbeam.yaml")
	content := "paths:\n  state: " + t.TempDir() + "\n"
	if role != "" {
		content += "node:\n  role: " + role + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return &AppContext{
		Config: cfg,
		Logger: logger.Nop(),
		Exec:   fakeexec.New(),
		Status: console.NewPlainStatus(io.Discard),
		Out:    io.Discard,
	}
}

func stepNames(plan []engine.Step) []string {
	names := make([]string, 0, len(plan))
	for _, step := range plan {
		names = append(names, step.Name())
	}
	return names
}

func TestPlansFollowRole(t *testing.T) {
	t.Parallel()

	control := testApp(t, "control")
	require.Equal(t, config.RoleControl, control.Role())
	require.Equal(t, []string{
		"Install juju", "Install microk8s", "Ensure microk8s access",
		"Enable microk8s ha-cluster", "Enable microk8s dns", "Enable microk8s hostpath-storage", "Enable microk8s metallb",
		"Bootstrap Juju", "Create model", "Deploy bundle",
	}, stepNames(control.initPlan(config.RoleControl, "ubuntu")))
	require.Equal(t, []string{"Destroy model", "Purging Terraform state"}, stepNames(control.resetPlan(control.Role())))

	compute := testApp(t, "compute")
	require.Equal(t, []string{"Install openstack-hypervisor"}, stepNames(compute.initPlan(compute.Role(), "ubuntu")))
	require.Equal(t, []string{
		"Update Identity Config", "Update RabbitMQ Config", "Update Network Config", "Update Node Config",
	}, stepNames(compute.bootstrapPlan(compute.Role())))
	require.Equal(t, []string{"Reset hypervisor"}, stepNames(compute.resetPlan(compute.Role())))
}

func TestConvergedIsDefaultRole(t *testing.T) {
	t.Parallel()

	app := testApp(t, "")
	require.Equal(t, config.RoleConverged, app.Role())

	creds := cloudsteps.Credentials{"OS_AUTH_URL": "http://keystone", "OS_AUTH_VERSION": "3"}
	names := stepNames(app.configurePlan(app.Role(), creds, "", ""))
	require.Equal(t, []string{
		"Initialize Terraform", "Configure OpenStack cloud", "Generate user openrc", "Update External Network Config",
	}, names)

	all := append(stepNames(app.bootstrapPlan(app.Role())), stepNames(app.inspectPlan(t.TempDir()))...)
	sort.Strings(all)
	require.Contains(t, all, "Bootstrap Juju")
	require.Contains(t, all, "Update Node Config")
	require.Contains(t, all, "Write debug log")
}
