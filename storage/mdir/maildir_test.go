package mdir_test

import (
	"runtime"
	"testing"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/storage/mdir"
	"github.com/creativeprojects/mailstore/storage/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaildirBackend(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("maildir is not supported on Windows")
		return
	}
	root := t.TempDir()
	backend, err := mdir.NewWithLogger(root, lib.NewTestLogger(t, "client"))
	require.NoError(t, err)

	defer backend.Close()

	err = test.PrepareBackend(backend)
	require.NoError(t, err)

	test.RunTestsOnBackend(t, backend)
	test.RunMapperTests(t, backend)
	test.RunConcurrencyTests(t, backend)
}

func TestMaildirProviders(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("maildir is not supported on Windows")
		return
	}
	root := t.TempDir()
	backend, err := mdir.New(root)
	require.NoError(t, err)
	defer backend.Close()

	info := mailbox.Info{Delimiter: mdir.Delimiter, Name: "Providers"}
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
