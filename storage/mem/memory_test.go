package mem_test

import (
	"testing"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/storage/mem"
	"github.com/creativeprojects/mailstore/storage/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend(t *testing.T) {
	backend := mem.NewWithLogger(lib.NewTestLogger(t, "client"))

	defer backend.Close()

	err := test.PrepareBackend(backend)
	require.NoError(t, err)

	test.RunTestsOnBackend(t, backend)
	test.RunMapperTests(t, backend)
	test.RunConcurrencyTests(t, backend)
}

func TestMemoryProviders(t *testing.T) {
	backend := mem.New()
	defer backend.Close()

	info := mailbox.Info{Delimiter: mem.Delimiter, Name: "Providers"}
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
