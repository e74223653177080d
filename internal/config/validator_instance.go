package config

import (
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/sunbeam/internal/version"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	channelPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*(?:/[a-z0-9][a-z0-9.-]*){0,2}$`)
	sshGitPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+:[a-zA-Z0-9._/~-]+$`)
)

// validatorInstance configures and returns the shared validator instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return Role(fl.Field().String()).Valid()
		})

		_ = v.RegisterValidation("snap_channel", func(fl validator.FieldLevel) bool {
			return channelPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("snap_version", func(fl validator.FieldLevel) bool {
			_, err := version.Parse(fl.Field().String())
			return err == nil
		})

		_ = v.RegisterValidation("plan_source", func(fl validator.FieldLevel) bool {
			return IsGitSource(fl.Field().String()) || isValidFilePath(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns a configured validator instance for use outside the config package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// IsGitSource reports whether a plan source names a git remote rather than a local directory.
func IsGitSource(source string) bool {
	if strings.TrimSpace(source) == "" {
		return false
	}
	if sshGitPattern.MatchString(source) {
		return true
	}
	parsed, err := url.Parse(source)
	if err != nil || parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "ssh", "git":
		return true
	}
	return false
}

// isValidFilePath performs syntactic validation of file paths without filesystem access
func isValidFilePath(path string) bool {
	if path == "" || strings.Contains(path, "\x00") {
		return false
	}
	if strings.HasPrefix(path, "/") {
		return !strings.Contains(path, "/../") && !strings.HasSuffix(path, "/..")
	}
	return strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../")
}
