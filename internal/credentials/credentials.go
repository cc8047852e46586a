// Package credentials retrieves the dashboard login from an OS-managed
// secret store. The store is reached through the Source interface so the
// rest of the program can run against a fake in tests.
package credentials

import (
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/domain"
)

// Source yields a named secret from a secret store.
type Source interface {
	Get(service, name string) (string, error)
}

// OSKeyring reads from the platform credential store (Windows Credential
// Manager, macOS Keychain, or the freedesktop Secret Service).
type OSKeyring struct{}

func (OSKeyring) Get(service, name string) (string, error) {
	return keyring.Get(service, name)
}

// Login fetches the dashboard username and password stored under the given
// service name, as the "Username" and "Password" entries. It is called
// before any network activity so a missing secret aborts the run early.
func Login(src Source, service string) (user, pass string, err error) {
	user, err = src.Get(service, "Username")
	if err != nil {
		return "", "", fmt.Errorf("%w: %s/Username: %v", domain.ErrCredentialRetrieval, service, err)
	}
	pass, err = src.Get(service, "Password")
	if err != nil {
		return "", "", fmt.Errorf("%w: %s/Password: %v", domain.ErrCredentialRetrieval, service, err)
	}
	if user == "" || pass == "" {
		return "", "", fmt.Errorf("%w: empty secret under service %q", domain.ErrCredentialRetrieval, service)
	}
	return user, pass, nil
}
