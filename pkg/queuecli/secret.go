package queuecli

import (
	"os"

	"github.com/zalando/go-keyring"

	"github.com/tubequeue/tubequeue/common"
)

const (
	keyringService = "tubequeue"
	keyringUser    = "rpc-secret"
)

// LoadSecret resolves the RPC secret: the environment variable wins (for
// headless machines and CI), then the OS keyring. A missing secret is
// not an error; it returns "" and auth is skipped.
func LoadSecret() (string, error) {
	if s := os.Getenv(common.RPCSecretEnv); s != "" {
		return s, nil
	}
	s, err := keyring.Get(keyringService, keyringUser)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s, nil
}

// StoreSecret saves the RPC secret in the OS keyring.
func StoreSecret(secret string) error {
	return keyring.Set(keyringService, keyringUser, secret)
}

// DeleteSecret removes the stored secret. Absence is not an error.
func DeleteSecret() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}
