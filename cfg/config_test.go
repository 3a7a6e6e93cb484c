package cfg

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	source := `
accounts:
  inmem:
    type: memory
  archive:
    type: local
    file: /tmp/archive.db
  index:
    type: sqlite
    file: /tmp/index.db
  mail:
    type: maildir
    root: /tmp/mail
`
	config, err := load(io.NopCloser(strings.NewReader(source)))
	require.NoError(t, err)
	require.Len(t, config.Accounts, 4)
	assert.Equal(t, MEMORY, config.Accounts["inmem"].Type)
	assert.Equal(t, "/tmp/archive.db", config.Accounts["archive"].File)
	assert.Equal(t, SQLITE, config.Accounts["index"].Type)
	assert.Equal(t, "/tmp/mail", config.Accounts["mail"].Root)
}

func TestLoadConfigUnknownType(t *testing.T) {
	source := `
accounts:
  broken:
    type: carrier-pigeon
`
	_, err := load(io.NopCloser(strings.NewReader(source)))
	assert.Error(t, err)
}

func TestLoadConfigMissingParameter(t *testing.T) {
	source := `
accounts:
  broken:
    type: sqlite
`
	_, err := load(io.NopCloser(strings.NewReader(source)))
	assert.Error(t, err)
}
