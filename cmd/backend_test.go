package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/creativeprojects/mailstore/cfg"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackendUnknownAccount(t *testing.T) {
	config = &cfg.Config{Accounts: map[string]cfg.Account{}}

	_, err := openBackend("nope")
	assert.Error(t, err)
}

func TestOpenEveryBackendType(t *testing.T) {
	dir := t.TempDir()
	config = &cfg.Config{Accounts: map[string]cfg.Account{
		"memory":  {Type: cfg.MEMORY},
		"local":   {Type: cfg.LOCAL, File: filepath.Join(dir, "store.db")},
		"sqlite":  {Type: cfg.SQLITE, File: filepath.Join(dir, "store.sqlite")},
		"maildir": {Type: cfg.MAILDIR, Root: filepath.Join(dir, "maildir")},
	}}

	message := "From: sender@example.org\r\n\r\nSome content"
	for name := range config.Accounts {
		t.Run(name, func(t *testing.T) {
			backend, err := openBackend(name)
			require.NoError(t, err)
			defer backend.Close()

			info := mailbox.Info{
				Delimiter: backend.Delimiter(),
				Name:      "INBOX",
			}
			require.NoError(t, backend.CreateMailbox(info))

			_, err = backend.Add(info, mailbox.MessageProperties{
				Size:      uint32(len(message)),
				BodyStart: 26,
			}, bytes.NewBufferString(message))
			require.NoError(t, err)

			status, err := backend.SelectMailbox(info)
			require.NoError(t, err)
			assert.Equal(t, uint32(1), status.Messages)
		})
	}
}
