package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/storage/sqlite"
	"github.com/creativeprojects/mailstore/storage/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteBackend(t *testing.T) {
	dir := t.TempDir()
	backend, err := sqlite.NewStoreWithLogger(filepath.Join(dir, "store.sqlite"), lib.NewTestLogger(t, "client"))
	require.NoError(t, err)

	defer backend.Close()

	err = test.PrepareBackend(backend)
	require.NoError(t, err)

	test.RunTestsOnBackend(t, backend)
	test.RunMapperTests(t, backend)
	test.RunConcurrencyTests(t, backend)
}

func TestSqliteProviders(t *testing.T) {
	dir := t.TempDir()
	backend, err := sqlite.NewStore(filepath.Join(dir, "store.sqlite"))
	require.NoError(t, err)
	defer backend.Close()

	info := mailbox.Info{Delimiter: sqlite.Delimiter, Name: "Providers"}
	require.NoError(t, backend.CreateMailbox(info))

	uid, err := backend.Uids().NextUid(info)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), uid)

	uid, err = backend.Uids().LastUid(info)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), uid)

	modSeq, err := backend.ModSeqs().NextModSeq(info)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), modSeq)

	modSeq, err = backend.ModSeqs().HighestModSeq(info)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), modSeq)
}

func TestSqliteUnavailableAfterClose(t *testing.T) {
	dir := t.TempDir()
	backend, err := sqlite.NewStore(filepath.Join(dir, "store.sqlite"))
	require.NoError(t, err)

	info := mailbox.Info{Delimiter: sqlite.Delimiter, Name: "Closed"}
	require.NoError(t, backend.CreateMailbox(info))
	require.NoError(t, backend.Close())

	// read path hits the closed database
	_, err = backend.CountMessages(info)
	assert.ErrorIs(t, err, lib.ErrStorageUnavailable)

	// write path is refused before reaching the writer goroutine
	err = backend.CreateMailbox(info)
	assert.ErrorIs(t, err, lib.ErrStorageUnavailable)

	// closing twice is safe
	require.NoError(t, backend.Close())
}
