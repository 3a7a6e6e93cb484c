package local_test

import (
	"path/filepath"
	"testing"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/storage/local"
	"github.com/creativeprojects/mailstore/storage/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltBackend(t *testing.T) {
	dir := t.TempDir()
	backend, err := local.NewBoltStoreWithLogger(filepath.Join(dir, "store.db"), lib.NewTestLogger(t, "client"))
	require.NoError(t, err)

	defer backend.Close()

	err = backend.Init()
	require.NoError(t, err)

	err = test.PrepareBackend(backend)
	require.NoError(t, err)

	test.RunTestsOnBackend(t, backend)
	test.RunMapperTests(t, backend)
	test.RunConcurrencyTests(t, backend)
}

func TestBoltProviders(t *testing.T) {
	dir := t.TempDir()
	backend, err := local.NewBoltStore(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Init())

	info := mailbox.Info{Delimiter: local.Delimiter, Name: "Providers"}
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

func TestBoltUnavailableAfterClose(t *testing.T) {
	dir := t.TempDir()
	backend, err := local.NewBoltStore(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	require.NoError(t, backend.Init())

	info := mailbox.Info{Delimiter: local.Delimiter, Name: "Closed"}
	require.NoError(t, backend.CreateMailbox(info))
	require.NoError(t, backend.Close())

	_, err = backend.CountMessages(info)
	assert.ErrorIs(t, err, lib.ErrStorageUnavailable)

	err = backend.CreateMailbox(info)
	assert.ErrorIs(t, err, lib.ErrStorageUnavailable)
}
