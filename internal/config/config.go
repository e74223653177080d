package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. SUNBEAM_NODE_ROLE.
	EnvPrefix = "SUNBEAM"
	// HomeEnv overrides the default state directory.
	HomeEnv = "SUNBEAM_HOME"
	// FileName is the config file name inside the state directory.
	FileName = "sunbeam.yaml"

	// AnswersFileName is the answer store, shared with terraform as its variables file.
	AnswersFileName = "terraform.tfvars.json"
	// LogFileName receives debug-level JSON logs for every run.
	LogFileName = "sunbeam.log"
)

// Config is the resolved configuration for one CLI invocation.
type Config struct {
	Node         NodeConfig         `mapstructure:"node"`
	ControlPlane ControlPlaneConfig `mapstructure:"control_plane"`
	Paths        PathsConfig        `mapstructure:"paths"`
	Juju         JujuConfig         `mapstructure:"juju"`
	Microk8s     Microk8sConfig     `mapstructure:"microk8s"`
	Terraform    TerraformConfig    `mapstructure:"terraform"`
	Snapd        SocketConfig       `mapstructure:"snapd"`
	Hypervisor   SocketConfig       `mapstructure:"hypervisor"`
	Snaps        SnapsConfig        `mapstructure:"snaps"`
	Timeouts     TimeoutsConfig     `mapstructure:"timeouts"`

	// File is the config file that was read, or the one SaveRole would write.
	File string `mapstructure:"-"`
}

// NodeConfig describes this machine's part in the deployment.
type NodeConfig struct {
	Role Role `mapstructure:"role" validate:"omitempty,role"`
}

// ControlPlaneConfig names the juju cloud, model and bundle of the control plane.
type ControlPlaneConfig struct {
	Cloud  string `mapstructure:"cloud" validate:"required"`
	Model  string `mapstructure:"model" validate:"required"`
	Bundle string `mapstructure:"bundle" validate:"required"`
}

// PathsConfig holds the state directory and the terraform plan source.
type PathsConfig struct {
	State string `mapstructure:"state" validate:"required"`
	Plans string `mapstructure:"plans" validate:"required,plan_source"`
}

// JujuConfig locates the juju binary and its data directory.
type JujuConfig struct {
	Binary  string `mapstructure:"binary" validate:"required"`
	DataDir string `mapstructure:"data_dir"`
}

// Microk8sConfig locates the microk8s binary.
type Microk8sConfig struct {
	Binary       string `mapstructure:"binary" validate:"required"`
	MetalLBRange string `mapstructure:"metallb_range" validate:"required"`
}

// TerraformConfig locates the terraform binary.
type TerraformConfig struct {
	Binary string `mapstructure:"binary" validate:"required"`
}

// SocketConfig is a REST endpoint served over a unix socket.
type SocketConfig struct {
	Socket string `mapstructure:"socket" validate:"required"`
}

// SnapsConfig lists the snaps installed during init.
type SnapsConfig struct {
	Juju       SnapConfig `mapstructure:"juju"`
	Microk8s   SnapConfig `mapstructure:"microk8s"`
	Hypervisor SnapConfig `mapstructure:"hypervisor"`
}

// SnapConfig is the channel to install from and the lowest acceptable installed version.
type SnapConfig struct {
	Channel    string `mapstructure:"channel" validate:"required,snap_channel"`
	MinVersion string `mapstructure:"min_version" validate:"required,snap_version"`
}

// TimeoutsConfig bounds the polling loops.
type TimeoutsConfig struct {
	ModelStatus time.Duration `mapstructure:"model_status" validate:"gt=0"`
	SnapChange  time.Duration `mapstructure:"snap_change" validate:"gt=0"`
}

// ConfigureDir is the terraform working directory used by configure and reset.
func (c *Config) ConfigureDir() string {
	return filepath.Join(c.Paths.State, "etc", "configure")
}

// AnswersFile is the path of the answer store.
func (c *Config) AnswersFile() string {
	return filepath.Join(c.ConfigureDir(), AnswersFileName)
}

// LogFile is the path of the per-run debug log.
func (c *Config) LogFile() string {
	return filepath.Join(c.Paths.State, "logs", LogFileName)
}

// Home returns the default state directory.
func Home() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".sunbeam"
	}
	return filepath.Join(userHome, ".local", "share", "sunbeam")
}

// DefaultFile returns the config file used when --config is not given.
func DefaultFile() string {
	return filepath.Join(Home(), FileName)
}

func snapRoot() string {
	if root := os.Getenv("SNAP"); root != "" {
		return root
	}
	return filepath.Join("/snap", "sunbeam", "current")
}

func setDefaults(v *viper.Viper) {
	root := snapRoot()

	v.SetDefault("node.role", "")

	v.SetDefault("control_plane.cloud", "microk8s")
	v.SetDefault("control_plane.model", "openstack")
	v.SetDefault("control_plane.bundle", filepath.Join(root, "etc", "bundles", "control-plane.yaml"))

	v.SetDefault("paths.state", Home())
	v.SetDefault("paths.plans", filepath.Join(root, "etc", "configure"))

	v.SetDefault("juju.binary", "juju")
	v.SetDefault("juju.data_dir", "")

	v.SetDefault("microk8s.binary", "microk8s")
	v.SetDefault("microk8s.metallb_range", "10.20.20.1-10.20.20.2")

	v.SetDefault("terraform.binary", "terraform")

	v.SetDefault("snapd.socket", "/run/snapd.socket")
	v.SetDefault("hypervisor.socket", "/var/snap/openstack-hypervisor/common/hypervisor-config.sock")

	for _, name := range []string{"juju", "microk8s", "hypervisor"} {
		v.SetDefault("snaps."+name+".channel", "latest/stable")
		v.SetDefault("snaps."+name+".min_version", "0.0.1")
	}

	v.SetDefault("timeouts.model_status", 30*time.Second)
	v.SetDefault("timeouts.snap_change", 180*time.Second)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves defaults, the config file and SUNBEAM_* overrides. An explicit
// path must exist; the default file is optional.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile()
	}

	v := newViper()
	if err := readFile(v, path, explicit); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sunbeamerrors.NewParseError(path, 0, err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(v *viper.Viper, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return sunbeamerrors.NewParseError(path, 0, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return sunbeamerrors.NewParseError(path, 0, err)
	}
	if len(doc.Content) > 0 && doc.Content[0].Kind != yaml.MappingNode {
		return sunbeamerrors.NewParseError(path, doc.Content[0].Line, fmt.Errorf("config must be a mapping"))
	}

	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return sunbeamerrors.NewParseError(path, 0, err)
	}
	return nil
}

// Validate checks the struct tags and reports the first failing field.
func (c *Config) Validate() error {
	err := validatorInstance().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return sunbeamerrors.NewValidationError(fe.Namespace(), fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()), err)
	}
	return sunbeamerrors.NewValidationError("", err.Error(), err)
}

// SaveRole records the node role in the config file, keeping any other keys.
func SaveRole(path string, role Role) error {
	if !role.Valid() {
		return sunbeamerrors.NewValidationError("node.role", fmt.Sprintf("unknown role %q", role), nil)
	}

	v := viper.New()
	if err := readFile(v, path, false); err != nil {
		return err
	}
	v.Set("node.role", string(role))

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
