package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/sunbeam/internal/config"
	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

func parseRoleFlag(raw string) (config.Role, error) {
	return config.ParseRole(raw)
}

func validatePreseedFlag(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return sunbeamerrors.NewValidationError("preseed", "preseed file does not exist", err)
	}
	if info.IsDir() {
		return sunbeamerrors.NewValidationError("preseed", fmt.Sprintf("%s is a directory", path), nil)
	}
	return nil
}

func validateOpenRCFlag(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return sunbeamerrors.NewValidationError("openrc", "cannot resolve path", err)
	}
	info, err := os.Stat(filepath.Dir(abs))
	if err != nil || !info.IsDir() {
		return sunbeamerrors.NewValidationError("openrc", fmt.Sprintf("directory of %s does not exist", path), err)
	}
	return nil
}
