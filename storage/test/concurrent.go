package test

import (
	"bytes"
	"testing"

	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/storage"
	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	concurrentWriters  = 8
	messagesPerWriter  = 25
	concurrentMessages = concurrentWriters * messagesPerWriter
)

// RunConcurrencyTests checks UID and mod-seq allocation under concurrent
// writers on the same mailbox: every allocation must be unique and the
// counters must land exactly on the total.
func RunConcurrencyTests(t *testing.T, backend storage.Backend) {
	require.NotNil(t, backend)

	t.Run("ConcurrentAddsSameMailbox", func(t *testing.T) {
		info := newMailbox(t, backend)
		content, bodyStart := messageContent(1)

		group := errgroup.Group{}
		for writer := 0; writer < concurrentWriters; writer++ {
			group.Go(func() error {
				for i := 0; i < messagesPerWriter; i++ {
					props := mailbox.MessageProperties{
						InternalDate: sampleMessageDate,
						Size:         uint32(len(content)),
						BodyStart:    bodyStart,
					}
					if _, err := backend.Add(info, props, bytes.NewReader(content)); err != nil {
						return err
					}
				}
				return nil
			})
		}
		require.NoError(t, group.Wait())

		count, err := backend.CountMessages(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(concurrentMessages), count)

		messages, err := backend.FindInMailbox(info, mailbox.All(), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		require.Len(t, messages, concurrentMessages)

		seenUids := make(map[uint64]bool, concurrentMessages)
		seenModSeqs := make(map[uint64]bool, concurrentMessages)
		for _, msg := range messages {
			assert.False(t, seenUids[msg.Uid], "duplicate uid %d", msg.Uid)
			assert.False(t, seenModSeqs[msg.ModSeq], "duplicate mod-seq %d", msg.ModSeq)
			seenUids[msg.Uid] = true
			seenModSeqs[msg.ModSeq] = true
		}

		lastUid, err := backend.LastUid(info)
		require.NoError(t, err)
		assert.Equal(t, uint64(concurrentMessages), lastUid)

		modSeq, err := backend.HighestModSeq(info)
		require.NoError(t, err)
		assert.Equal(t, uint64(concurrentMessages), modSeq)
	})

	t.Run("ConcurrentFlagUpdates", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, concurrentWriters)

		group := errgroup.Group{}
		for writer := 0; writer < concurrentWriters; writer++ {
			uid := messages[writer].Uid
			group.Go(func() error {
				_, err := backend.UpdateFlags(info, []string{imap.SeenFlag}, true, false, mailbox.One(uid))
				return err
			})
		}
		require.NoError(t, group.Wait())

		unseen, err := backend.CountUnseen(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), unseen)

		modSeq, err := backend.HighestModSeq(info)
		require.NoError(t, err)
		assert.Equal(t, uint64(concurrentWriters*2), modSeq)
	})
}
