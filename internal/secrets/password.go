// Package secrets keeps the SMTP password in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups c2cradar's entries in the OS keychain.
const KeyringService = "c2cradar"

// ErrNoPassword is returned when neither the config nor the keychain holds a password.
var ErrNoPassword = errors.New("smtp password not found (set email.password or store it with `c2cradar secrets set-email-password`)")

// SMTPPassword returns configured when it is set, otherwise the keychain
// entry for account.
func SMTPPassword(configured, account string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if strings.TrimSpace(account) == "" {
		return "", ErrNoPassword
	}
	pw, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoPassword
	}
	if err != nil {
		return "", fmt.Errorf("read keyring entry %s: %w", account, err)
	}
	if strings.TrimSpace(pw) == "" {
		return "", ErrNoPassword
	}
	return pw, nil
}

func SetSMTPPassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

func DeleteSMTPPassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}
