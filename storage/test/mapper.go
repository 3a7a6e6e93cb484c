package test

import (
	"bytes"
	"testing"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/storage"
	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunMapperTests verifies the message mapper contract: every backend must
// pass the exact same scenarios.
func RunMapperTests(t *testing.T, backend storage.Backend) {
	require.NotNil(t, backend)

	t.Run("VirginMailboxCounters", func(t *testing.T) {
		info := newMailbox(t, backend)

		lastUid, err := backend.LastUid(info)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), lastUid)

		modSeq, err := backend.HighestModSeq(info)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), modSeq)

		count, err := backend.CountMessages(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), count)

		unseen, err := backend.CountUnseen(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), unseen)

		messages, err := backend.FindInMailbox(info, mailbox.All(), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		assert.Empty(t, messages)

		recent, err := backend.FindRecentUids(info)
		require.NoError(t, err)
		assert.Empty(t, recent)

		_, found, err := backend.FirstUnseenUid(info)
		require.NoError(t, err)
		assert.False(t, found)

		expunged, err := backend.Expunge(info, mailbox.All())
		require.NoError(t, err)
		assert.Empty(t, expunged)

		updated, err := backend.UpdateFlags(info, []string{imap.SeenFlag}, true, false, mailbox.All())
		require.NoError(t, err)
		assert.Empty(t, updated)
	})

	t.Run("MailboxNotFound", func(t *testing.T) {
		info := mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "Does not exist",
		}
		_, err := backend.FindInMailbox(info, mailbox.All(), mailbox.FetchMetadata, 0)
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)

		_, err = backend.CountMessages(info)
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)

		_, err = backend.CountUnseen(info)
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)

		_, err = backend.FindRecentUids(info)
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)

		_, _, err = backend.FirstUnseenUid(info)
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)

		_, err = backend.LastUid(info)
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)

		_, err = backend.HighestModSeq(info)
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)

		err = backend.Delete(info, 1)
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)

		_, err = backend.UpdateFlags(info, []string{imap.SeenFlag}, true, false, mailbox.All())
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)

		_, err = backend.Expunge(info, mailbox.All())
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)

		content, bodyStart := messageContent(1)
		_, err = backend.Add(info, mailbox.MessageProperties{
			Size:      uint32(len(content)),
			BodyStart: bodyStart,
		}, bytes.NewReader(content))
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)
	})

	t.Run("AddAssignsAscendingUids", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 5)

		assert.Equal(t, []uint64{1, 2, 3, 4, 5}, uidsOf(messages))
		for i := 1; i < len(messages); i++ {
			assert.Greater(t, messages[i].ModSeq, messages[i-1].ModSeq)
		}

		lastUid, err := backend.LastUid(info)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), lastUid)

		modSeq, err := backend.HighestModSeq(info)
		require.NoError(t, err)
		assert.Equal(t, messages[4].ModSeq, modSeq)
	})

	t.Run("CountMessages", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessages(t, backend, info, 5)

		count, err := backend.CountMessages(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(5), count)
	})

	t.Run("CountUnseenWithPresetFlags", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessage(t, backend, info, 1, imap.SeenFlag)
		addMessage(t, backend, info, 2)
		addMessage(t, backend, info, 3, imap.SeenFlag)
		addMessage(t, backend, info, 4)

		unseen, err := backend.CountUnseen(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), unseen)
	})

	t.Run("MarkingSeenDecrementsUnseen", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 3)

		_, err := backend.UpdateFlags(info, []string{imap.SeenFlag}, true, false, mailbox.One(messages[0].Uid))
		require.NoError(t, err)

		unseen, err := backend.CountUnseen(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), unseen)
	})

	t.Run("DeleteMessage", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 5)

		err := backend.Delete(info, messages[2].Uid)
		require.NoError(t, err)

		count, err := backend.CountMessages(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(4), count)

		remaining, err := backend.FindInMailbox(info, mailbox.All(), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 4, 5}, uidsOf(remaining))
	})

	t.Run("DeleteUnknownUidIsNoOp", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessages(t, backend, info, 3)

		lastUid, err := backend.LastUid(info)
		require.NoError(t, err)

		err = backend.Delete(info, lastUid+1)
		require.NoError(t, err)
		err = backend.Delete(info, lastUid+1)
		require.NoError(t, err)

		count, err := backend.CountMessages(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(3), count)
	})

	t.Run("DeleteUnseenMessageDecrementsUnseen", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessage(t, backend, info, 1, imap.SeenFlag)
		unseenMsg := addMessage(t, backend, info, 2)

		err := backend.Delete(info, unseenMsg.Uid)
		require.NoError(t, err)

		unseen, err := backend.CountUnseen(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), unseen)
	})

	t.Run("DeleteDoesNotMoveCounters", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 3)

		lastUid, err := backend.LastUid(info)
		require.NoError(t, err)
		modSeq, err := backend.HighestModSeq(info)
		require.NoError(t, err)

		err = backend.Delete(info, messages[1].Uid)
		require.NoError(t, err)

		lastUidAfter, err := backend.LastUid(info)
		require.NoError(t, err)
		assert.Equal(t, lastUid, lastUidAfter)

		modSeqAfter, err := backend.HighestModSeq(info)
		require.NoError(t, err)
		assert.Equal(t, modSeq, modSeqAfter)
	})

	t.Run("RangeOne", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 5)

		found, err := backend.FindInMailbox(info, mailbox.One(messages[1].Uid), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{messages[1].Uid}, uidsOf(found))
	})

	t.Run("RangeOneAbsentUid", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessages(t, backend, info, 2)

		found, err := backend.FindInMailbox(info, mailbox.One(42), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("RangeFrom", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 5)

		found, err := backend.FindInMailbox(info, mailbox.From(messages[2].Uid), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{3, 4, 5}, uidsOf(found))
	})

	t.Run("RangeBetweenIsInclusive", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 5)

		found, err := backend.FindInMailbox(info, mailbox.Between(messages[0].Uid, messages[3].Uid), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 3, 4}, uidsOf(found))
	})

	t.Run("RangeBetweenSkipsHoles", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 5)

		err := backend.Delete(info, messages[2].Uid)
		require.NoError(t, err)

		found, err := backend.FindInMailbox(info, mailbox.Between(messages[0].Uid, messages[3].Uid), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 4}, uidsOf(found))
	})

	t.Run("RangeAll", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessages(t, backend, info, 5)

		found, err := backend.FindInMailbox(info, mailbox.All(), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 3, 4, 5}, uidsOf(found))
	})

	t.Run("FindWithLimit", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessages(t, backend, info, 5)

		found, err := backend.FindInMailbox(info, mailbox.All(), mailbox.FetchMetadata, 2)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2}, uidsOf(found))

		// limit zero means no limit
		found, err = backend.FindInMailbox(info, mailbox.All(), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		assert.Len(t, found, 5)
	})

	t.Run("FetchTypes", func(t *testing.T) {
		info := newMailbox(t, backend)
		content, bodyStart := messageContent(1)
		added := addMessage(t, backend, info, 1, imap.FlaggedFlag)

		fetchTypes := []mailbox.FetchType{
			mailbox.FetchMetadata,
			mailbox.FetchHeaders,
			mailbox.FetchBody,
			mailbox.FetchFull,
		}
		for _, fetch := range fetchTypes {
			found, err := backend.FindInMailbox(info, mailbox.One(added.Uid), fetch, 0)
			require.NoError(t, err)
			require.Len(t, found, 1, "fetch type %s", fetch)

			msg := found[0]
			assert.Equal(t, added.Uid, msg.Uid, "fetch type %s", fetch)
			assert.Equal(t, added.ModSeq, msg.ModSeq, "fetch type %s", fetch)
			assert.ElementsMatch(t, []string{imap.FlaggedFlag}, msg.Flags, "fetch type %s", fetch)
			assert.Equal(t, uint32(len(content)), msg.Size, "fetch type %s", fetch)

			switch fetch {
			case mailbox.FetchMetadata:
				assert.Empty(t, msg.Headers)
				assert.Empty(t, msg.Body)
			case mailbox.FetchHeaders:
				assert.Equal(t, content[:bodyStart], msg.Headers)
				assert.Empty(t, msg.Body)
			case mailbox.FetchBody, mailbox.FetchFull:
				assert.Equal(t, content[:bodyStart], msg.Headers)
				assert.Equal(t, content[bodyStart:], msg.Body)
				assert.Equal(t, content, msg.Content())
			}
		}
	})

	t.Run("FindRecentUids", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessage(t, backend, info, 1, imap.RecentFlag)
		addMessage(t, backend, info, 2)
		addMessage(t, backend, info, 3, imap.RecentFlag, imap.SeenFlag)

		recent, err := backend.FindRecentUids(info)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 3}, recent)
	})

	t.Run("FirstUnseenUid", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessage(t, backend, info, 1, imap.SeenFlag)
		addMessage(t, backend, info, 2, imap.SeenFlag)
		addMessage(t, backend, info, 3)
		addMessage(t, backend, info, 4)

		uid, found, err := backend.FirstUnseenUid(info)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uint64(3), uid)
	})

	t.Run("FirstUnseenUidAllSeen", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessage(t, backend, info, 1, imap.SeenFlag)
		addMessage(t, backend, info, 2, imap.SeenFlag)

		_, found, err := backend.FirstUnseenUid(info)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("FlagTransitions", func(t *testing.T) {
		info := newMailbox(t, backend)
		msg := addMessage(t, backend, info, 1, imap.SeenFlag, imap.DraftFlag)

		// replace the whole set
		updated, err := backend.UpdateFlags(info, []string{imap.FlaggedFlag}, false, true, mailbox.One(msg.Uid))
		require.NoError(t, err)
		require.Len(t, updated, 1)
		assert.Equal(t, msg.Uid, updated[0].Uid)
		assert.ElementsMatch(t, []string{imap.SeenFlag, imap.DraftFlag}, updated[0].Before)
		assert.ElementsMatch(t, []string{imap.FlaggedFlag}, updated[0].After)

		// add a flag
		updated, err = backend.UpdateFlags(info, []string{imap.SeenFlag}, true, false, mailbox.One(msg.Uid))
		require.NoError(t, err)
		require.Len(t, updated, 1)
		assert.ElementsMatch(t, []string{imap.FlaggedFlag}, updated[0].Before)
		assert.ElementsMatch(t, []string{imap.FlaggedFlag, imap.SeenFlag}, updated[0].After)

		// remove a flag
		updated, err = backend.UpdateFlags(info, []string{imap.SeenFlag}, false, false, mailbox.One(msg.Uid))
		require.NoError(t, err)
		require.Len(t, updated, 1)
		assert.ElementsMatch(t, []string{imap.FlaggedFlag, imap.SeenFlag}, updated[0].Before)
		assert.ElementsMatch(t, []string{imap.FlaggedFlag}, updated[0].After)
	})

	t.Run("FlagUpdateCannotTouchRecent", func(t *testing.T) {
		info := newMailbox(t, backend)
		marked := addMessage(t, backend, info, 1, imap.RecentFlag, imap.SeenFlag)
		plain := addMessage(t, backend, info, 2)

		// replace keeps Recent on the message
		updated, err := backend.UpdateFlags(info, []string{imap.FlaggedFlag}, false, true, mailbox.One(marked.Uid))
		require.NoError(t, err)
		require.Len(t, updated, 1)
		assert.ElementsMatch(t, []string{imap.FlaggedFlag, imap.RecentFlag}, updated[0].After)

		// remove cannot clear it
		updated, err = backend.UpdateFlags(info, []string{imap.RecentFlag}, false, false, mailbox.One(marked.Uid))
		require.NoError(t, err)
		require.Len(t, updated, 1)
		assert.ElementsMatch(t, []string{imap.FlaggedFlag, imap.RecentFlag}, updated[0].After)

		// add cannot set it on another message
		updated, err = backend.UpdateFlags(info, []string{imap.RecentFlag, imap.DraftFlag}, true, false, mailbox.One(plain.Uid))
		require.NoError(t, err)
		require.Len(t, updated, 1)
		assert.ElementsMatch(t, []string{imap.DraftFlag}, updated[0].After)

		recent, err := backend.FindRecentUids(info)
		require.NoError(t, err)
		assert.Equal(t, []uint64{marked.Uid}, recent)
	})

	t.Run("FlagUpdateReportsNoOpTransition", func(t *testing.T) {
		info := newMailbox(t, backend)
		msg := addMessage(t, backend, info, 1, imap.FlaggedFlag)

		updated, err := backend.UpdateFlags(info, []string{imap.FlaggedFlag}, true, false, mailbox.One(msg.Uid))
		require.NoError(t, err)
		require.Len(t, updated, 1)
		assert.ElementsMatch(t, updated[0].Before, updated[0].After)
	})

	t.Run("FlagUpdateStampsNewModSeq", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessages(t, backend, info, 3)

		before, err := backend.HighestModSeq(info)
		require.NoError(t, err)

		updated, err := backend.UpdateFlags(info, []string{imap.SeenFlag}, true, false, mailbox.All())
		require.NoError(t, err)
		require.Len(t, updated, 3)
		for _, update := range updated {
			assert.Greater(t, update.ModSeq, before)
		}

		after, err := backend.HighestModSeq(info)
		require.NoError(t, err)
		assert.Greater(t, after, before)

		// the stamped mod-seq is visible on the records
		found, err := backend.FindInMailbox(info, mailbox.All(), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		for i, msg := range found {
			assert.Equal(t, updated[i].ModSeq, msg.ModSeq)
		}
	})

	t.Run("FlagUpdateLeavesOutsideRangeUntouched", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 4)

		updated, err := backend.UpdateFlags(info, []string{imap.SeenFlag}, true, false, mailbox.Between(messages[0].Uid, messages[1].Uid))
		require.NoError(t, err)
		assert.Len(t, updated, 2)

		found, err := backend.FindInMailbox(info, mailbox.From(messages[2].Uid), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		require.Len(t, found, 2)
		for _, msg := range found {
			assert.Empty(t, msg.Flags)
			assert.Equal(t, messages[int(msg.Uid)-1].ModSeq, msg.ModSeq)
		}
	})

	t.Run("FlagUpdateOnEmptyRange", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessages(t, backend, info, 2)

		before, err := backend.HighestModSeq(info)
		require.NoError(t, err)

		updated, err := backend.UpdateFlags(info, []string{imap.SeenFlag}, true, false, mailbox.From(100))
		require.NoError(t, err)
		assert.Empty(t, updated)

		after, err := backend.HighestModSeq(info)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("ExpungeSelectivity", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 5)

		_, err := backend.UpdateFlags(info, []string{imap.DeletedFlag}, true, false, mailbox.One(messages[0].Uid))
		require.NoError(t, err)
		_, err = backend.UpdateFlags(info, []string{imap.DeletedFlag}, true, false, mailbox.One(messages[3].Uid))
		require.NoError(t, err)

		expunged, err := backend.Expunge(info, mailbox.Between(messages[2].Uid, messages[4].Uid))
		require.NoError(t, err)
		require.Len(t, expunged, 1)

		metadata, found := expunged[messages[3].Uid]
		require.True(t, found)
		assert.Equal(t, messages[3].Uid, metadata.Uid)
		assert.Contains(t, metadata.Flags, imap.DeletedFlag)
		assert.Equal(t, messages[3].Size, metadata.Size)

		remaining, err := backend.FindInMailbox(info, mailbox.All(), mailbox.FetchMetadata, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 3, 5}, uidsOf(remaining))
	})

	t.Run("ExpungeAllMarked", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessages(t, backend, info, 3)

		_, err := backend.UpdateFlags(info, []string{imap.DeletedFlag}, true, false, mailbox.All())
		require.NoError(t, err)

		expunged, err := backend.Expunge(info, mailbox.All())
		require.NoError(t, err)
		assert.Len(t, expunged, 3)

		count, err := backend.CountMessages(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), count)
	})

	t.Run("ExpungeNothingMarked", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessages(t, backend, info, 3)

		before, err := backend.HighestModSeq(info)
		require.NoError(t, err)

		expunged, err := backend.Expunge(info, mailbox.All())
		require.NoError(t, err)
		assert.Empty(t, expunged)

		after, err := backend.HighestModSeq(info)
		require.NoError(t, err)
		assert.Equal(t, before, after)

		count, err := backend.CountMessages(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(3), count)
	})

	t.Run("ExpungeMovesModSeq", func(t *testing.T) {
		info := newMailbox(t, backend)
		messages := addMessages(t, backend, info, 2)

		_, err := backend.UpdateFlags(info, []string{imap.DeletedFlag}, true, false, mailbox.One(messages[0].Uid))
		require.NoError(t, err)

		before, err := backend.HighestModSeq(info)
		require.NoError(t, err)

		_, err = backend.Expunge(info, mailbox.All())
		require.NoError(t, err)

		after, err := backend.HighestModSeq(info)
		require.NoError(t, err)
		assert.Greater(t, after, before)
	})

	t.Run("CopyKeepsFlagsAndAddsRecent", func(t *testing.T) {
		source := newMailbox(t, backend)
		destination := newMailbox(t, backend)
		addMessage(t, backend, source, 1, imap.SeenFlag, imap.FlaggedFlag)

		messages, err := backend.FindInMailbox(source, mailbox.All(), mailbox.FetchFull, 0)
		require.NoError(t, err)
		require.Len(t, messages, 1)

		copied, err := backend.Copy(destination, messages[0])
		require.NoError(t, err)
		require.NotNil(t, copied)
		assert.Equal(t, uint64(1), copied.Uid)
		assert.ElementsMatch(t, []string{imap.SeenFlag, imap.FlaggedFlag, imap.RecentFlag}, copied.Flags)
		assert.Equal(t, messages[0].Content(), copied.Content())

		// copying a seen message does not change the unseen count
		unseen, err := backend.CountUnseen(destination)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), unseen)
	})

	t.Run("CopyUnseenMessageIncrementsUnseen", func(t *testing.T) {
		source := newMailbox(t, backend)
		destination := newMailbox(t, backend)
		addMessage(t, backend, source, 1)

		messages, err := backend.FindInMailbox(source, mailbox.All(), mailbox.FetchFull, 0)
		require.NoError(t, err)
		require.Len(t, messages, 1)

		_, err = backend.Copy(destination, messages[0])
		require.NoError(t, err)

		unseen, err := backend.CountUnseen(destination)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), unseen)
	})

	t.Run("CopyToSameMailboxMovesCounters", func(t *testing.T) {
		info := newMailbox(t, backend)
		addMessage(t, backend, info, 1, imap.SeenFlag)

		messages, err := backend.FindInMailbox(info, mailbox.All(), mailbox.FetchFull, 0)
		require.NoError(t, err)
		require.Len(t, messages, 1)

		lastUid, err := backend.LastUid(info)
		require.NoError(t, err)
		modSeq, err := backend.HighestModSeq(info)
		require.NoError(t, err)

		copied, err := backend.Copy(info, messages[0])
		require.NoError(t, err)
		assert.Greater(t, copied.Uid, lastUid)
		assert.Greater(t, copied.ModSeq, modSeq)

		count, err := backend.CountMessages(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), count)
	})

	t.Run("CopyLeavesSourceUntouched", func(t *testing.T) {
		source := newMailbox(t, backend)
		destination := newMailbox(t, backend)
		addMessages(t, backend, source, 2)

		lastUid, err := backend.LastUid(source)
		require.NoError(t, err)
		modSeq, err := backend.HighestModSeq(source)
		require.NoError(t, err)

		messages, err := backend.FindInMailbox(source, mailbox.All(), mailbox.FetchFull, 0)
		require.NoError(t, err)
		_, err = backend.Copy(destination, messages[0])
		require.NoError(t, err)

		lastUidAfter, err := backend.LastUid(source)
		require.NoError(t, err)
		assert.Equal(t, lastUid, lastUidAfter)

		modSeqAfter, err := backend.HighestModSeq(source)
		require.NoError(t, err)
		assert.Equal(t, modSeq, modSeqAfter)

		count, err := backend.CountMessages(source)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), count)
	})
}
