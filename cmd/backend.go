package cmd

import (
	"fmt"
	"log"

	"github.com/creativeprojects/mailstore/storage"
)

// openBackend opens the storage backend declared for that account name in the
// configuration file.
func openBackend(accountName string) (storage.Backend, error) {
	account, ok := config.Accounts[accountName]
	if !ok {
		return nil, fmt.Errorf("account not found: %s", accountName)
	}
	backend, err := storage.NewBackend(account)
	if err != nil {
		return nil, fmt.Errorf("cannot open backend: %w", err)
	}
	if global.verbose {
		backend.DebugLogger(log.Default())
	}
	return backend, nil
}
