package cloud

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
	"github.com/alexisbeaulieu97/sunbeam/internal/terraform"
)

// OpenRCFileMode is the mode of a written openrc file.
const OpenRCFileMode os.FileMode = 0o640

// UserOpenRCStep renders the openrc of the user created by the plans.
type UserOpenRCStep struct {
	engine.Base
	tf          Terraform
	dir         string
	authURL     string
	authVersion string
	path        string
	log         *logger.Logger
}

// NewUserOpenRCStep returns a step writing the openrc to path, or returning
// it as result lines when path is empty.
func NewUserOpenRCStep(tf Terraform, dir string, credentials Credentials, path string, log *logger.Logger) *UserOpenRCStep {
	return &UserOpenRCStep{
		Base:        engine.NewBase("Generate user openrc", "Generating openrc for cloud usage"),
		tf:          tf,
		dir:         dir,
		authURL:     credentials.AuthURL(),
		authVersion: credentials.AuthVersion(),
		path:        path,
		log:         orNop(log),
	}
}

func (s *UserOpenRCStep) Run(ctx context.Context, _ console.Status) model.Result {
	outputs, err := s.tf.Output(ctx, s.dir)
	if err != nil {
		s.log.Error(err, "reading terraform outputs")
		return model.Failed(err.Error())
	}
	openrc := RenderOpenRC(outputs, s.authURL, s.authVersion)

	if s.path == "" {
		return model.Completed(strings.Split(openrc, "\n")...)
	}
	if err := writeOpenRC(s.path, openrc); err != nil {
		s.log.Error(err, "writing openrc")
		return model.Failed(err.Error())
	}
	return model.Completed(fmt.Sprintf("Writing openrc to %s ... done", s.path))
}

// RenderOpenRC formats the user credentials found in terraform outputs.
func RenderOpenRC(outputs map[string]terraform.Output, authURL, authVersion string) string {
	value := func(key string) string { return outputs[key].String() }

	var b strings.Builder
	fmt.Fprintf(&b, "# openrc for %s\n", value("OS_USERNAME"))
	fmt.Fprintf(&b, "export OS_AUTH_URL=%s\n", authURL)
	for _, key := range []string{"OS_USERNAME", "OS_PASSWORD", "OS_USER_DOMAIN_NAME", "OS_PROJECT_DOMAIN_NAME", "OS_PROJECT_NAME"} {
		fmt.Fprintf(&b, "export %s=%s\n", key, value(key))
	}
	fmt.Fprintf(&b, "export OS_AUTH_VERSION=%s\n", authVersion)
	fmt.Fprintf(&b, "export OS_IDENTITY_API_VERSION=%s", authVersion)
	return b.String()
}

func writeOpenRC(path, openrc string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, OpenRCFileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := f.Chmod(OpenRCFileMode); err != nil {
		_ = f.Close()
		return fmt.Errorf("restrict %s: %w", path, err)
	}
	if _, err := f.WriteString(openrc + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
