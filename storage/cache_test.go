package storage_test

import (
	"testing"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/storage"
	"github.com/creativeprojects/mailstore/storage/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxCacheResolve(t *testing.T) {
	backend := mem.New()
	defer backend.Close()

	require.NoError(t, backend.CreateMailbox(mailbox.Info{Delimiter: mem.Delimiter, Name: "First"}))
	require.NoError(t, backend.CreateMailbox(mailbox.Info{Delimiter: mem.Delimiter, Name: "Second"}))

	list, err := backend.ListMailbox()
	require.NoError(t, err)
	require.Len(t, list, 2)

	cache := storage.NewMailboxCache(backend)
	for _, expected := range list {
		info, err := cache.Resolve(expected.ID.AsUint())
		require.NoError(t, err)
		assert.Equal(t, expected.Name, info.Name)
	}
}

func TestMailboxCacheUnknownIndex(t *testing.T) {
	backend := mem.New()
	defer backend.Close()

	cache := storage.NewMailboxCache(backend)
	_, err := cache.Resolve(42)
	assert.ErrorIs(t, err, lib.ErrMailboxNotFound)
}

func TestMailboxCacheSurvivesRename(t *testing.T) {
	backend := mem.New()
	defer backend.Close()

	require.NoError(t, backend.CreateMailbox(mailbox.Info{Delimiter: mem.Delimiter, Name: "Drafts"}))
	list, err := backend.ListMailbox()
	require.NoError(t, err)
	require.Len(t, list, 1)
	index := list[0].ID.AsUint()

	cache := storage.NewMailboxCache(backend)
	info, err := cache.Resolve(index)
	require.NoError(t, err)

	// a delete after caching does not affect resolution by index
	require.NoError(t, backend.DeleteMailbox(info))
	again, err := cache.Resolve(index)
	require.NoError(t, err)
	assert.Equal(t, info.Name, again.Name)

	// until the entry is forgotten
	cache.Forget(index)
	_, err = cache.Resolve(index)
	assert.ErrorIs(t, err, lib.ErrMailboxNotFound)
}
