package cloud

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	"github.com/alexisbeaulieu97/sunbeam/internal/internalexec"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
	"github.com/alexisbeaulieu97/sunbeam/internal/terraform"
)

// Terraform is the part of the terraform client used by the steps.
type Terraform interface {
	Init(ctx context.Context, dir string) (internalexec.Result, error)
	Apply(ctx context.Context, dir string, env []string) (internalexec.Result, error)
	Output(ctx context.Context, dir string) (map[string]terraform.Output, error)
}

func orNop(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	return log
}

// InitTerraformStep installs the providers of the plans in dir.
type InitTerraformStep struct {
	engine.Base
	tf  Terraform
	dir string
	log *logger.Logger
}

// NewInitTerraformStep returns a step running terraform init in dir.
func NewInitTerraformStep(tf Terraform, dir string, log *logger.Logger) *InitTerraformStep {
	return &InitTerraformStep{
		Base: engine.NewBase("Initialize Terraform", "Initializing Terraform from provider mirror"),
		tf:   tf,
		dir:  dir,
		log:  orNop(log),
	}
}

func (s *InitTerraformStep) Run(ctx context.Context, _ console.Status) model.Result {
	res, err := s.tf.Init(ctx, s.dir)
	if err != nil {
		s.log.Error(err, "initializing terraform")
		return model.Failed(err.Error())
	}
	s.log.Debugf("terraform init finished: %s", res.Stdout)
	return model.Completed()
}

// PurgeStateStep removes the terraform working directory with its state
// and variables.
type PurgeStateStep struct {
	engine.Base
	dir string
}

// NewPurgeStateStep returns a step purging dir.
func NewPurgeStateStep(dir string) *PurgeStateStep {
	return &PurgeStateStep{
		Base: engine.NewBase("Purging Terraform state", "Purging Terraform state and variables"),
		dir:  dir,
	}
}

// IsSkip skips when there is nothing to purge.
func (s *PurgeStateStep) IsSkip(context.Context, console.Status) (bool, error) {
	_, err := os.Stat(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", s.dir, err)
	}
	return false, nil
}

func (s *PurgeStateStep) Run(context.Context, console.Status) model.Result {
	if err := os.RemoveAll(s.dir); err != nil {
		return model.Failed(err.Error())
	}
	return model.Completed()
}
