// Package cloud holds the steps of the configure command: plan sync,
// terraform initialisation, cloud configuration and openrc generation.
package cloud

import (
	"context"
	"fmt"
	"sort"

	"github.com/alexisbeaulieu97/sunbeam/internal/questions"
	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

const (
	keystoneApp        = "keystone"
	adminAccountAction = "get-admin-account"
	returnCodeKey      = "return-code"
)

// CredentialsFailedMessage is reported when keystone cannot provide the admin account.
const CredentialsFailedMessage = "Unable to retrieve openrc from Keystone service"

// ActionRunner runs juju actions on an application's leader.
type ActionRunner interface {
	RunAction(ctx context.Context, model, app, action string, params map[string]string) (map[string]any, error)
}

// Credentials are the OS_* variables of the cloud admin account.
type Credentials map[string]string

// Env renders the credentials as KEY=value pairs in key order.
func (c Credentials) Env() []string {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, key := range keys {
		env = append(env, key+"="+c[key])
	}
	return env
}

// AuthURL is the public keystone endpoint.
func (c Credentials) AuthURL() string { return c["OS_AUTH_URL"] }

// AuthVersion is the identity API version.
func (c Credentials) AuthVersion() string { return c["OS_AUTH_VERSION"] }

// AdminCredentials reads the admin account from keystone.
func AdminCredentials(ctx context.Context, actions ActionRunner, model string) (Credentials, error) {
	result, err := adminAccount(ctx, actions, model)
	if err != nil {
		return nil, err
	}

	str := func(key string) string { return questions.AsString(result[key]) }
	return Credentials{
		"OS_USERNAME":             str("username"),
		"OS_PASSWORD":             str("password"),
		"OS_AUTH_URL":             str("public-endpoint"),
		"OS_USER_DOMAIN_NAME":     str("user-domain-name"),
		"OS_PROJECT_DOMAIN_NAME":  str("project-domain-name"),
		"OS_PROJECT_NAME":         str("project-name"),
		"OS_AUTH_VERSION":         str("api-version"),
		"OS_IDENTITY_API_VERSION": str("api-version"),
	}, nil
}

// AdminOpenRC returns the admin openrc rendered by keystone.
func AdminOpenRC(ctx context.Context, actions ActionRunner, model string) (string, error) {
	result, err := adminAccount(ctx, actions, model)
	if err != nil {
		return "", err
	}
	return questions.AsString(result["openrc"]), nil
}

func adminAccount(ctx context.Context, actions ActionRunner, model string) (map[string]any, error) {
	result, err := actions.RunAction(ctx, model, keystoneApp, adminAccountAction, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CredentialsFailedMessage, err)
	}
	code, err := questions.AsInt(result[returnCodeKey])
	if err == nil && code > 0 {
		return nil, fmt.Errorf("%s: %w", CredentialsFailedMessage,
			sunbeamerrors.NewActionError(keystoneApp, adminAccountAction, code, nil))
	}
	return result, nil
}
