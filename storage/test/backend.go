package test

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/storage"
	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sampleMessage = "From: contact@example.org\r\n" +
		"To: contact@example.org\r\n" +
		"Subject: A little message, just for you\r\n" +
		"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
		"Message-ID: <0000000@localhost/>\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Hi there :)"
	sampleMessageDate  = time.Date(2020, 10, 20, 12, 11, 0, 0, time.UTC)
	sampleMessageFlags = []string{imap.SeenFlag}

	mailboxCounter uint32
)

// RunTestsOnBackend is the unit tests runner called by the concrete implementations of storage.Backend
func RunTestsOnBackend(t *testing.T, backend storage.Backend) {
	require.NotNil(t, backend)

	t.Run("ListMailbox", func(t *testing.T) {
		list, err := backend.ListMailbox()
		require.NoError(t, err)

		// check there's at least one mailbox
		require.Greater(t, len(list), 0)
		// check the expected delimiter
		assert.Equal(t, backend.Delimiter(), list[0].Delimiter)
	})

	t.Run("CreateExistingMailbox", func(t *testing.T) {
		list, err := backend.ListMailbox()
		require.NoError(t, err)

		assert.True(t, mailboxExists("INBOX", list))

		err = backend.CreateMailbox(mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "INBOX",
		})
		require.NoError(t, err)
	})

	t.Run("CreateDeleteMailboxSameDelimiter", func(t *testing.T) {
		info := mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "Path" + backend.Delimiter() + "Mailbox",
		}
		createMailbox(t, backend, info)
		deleteMailbox(t, backend, info)
		// also deletes the "Path" one if exists (it should on IMAP)
		_ = backend.DeleteMailbox(mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "Path",
		})
	})

	t.Run("CreateDeleteMailboxDifferentDelimiter", func(t *testing.T) {
		info := mailbox.Info{
			Delimiter: "#",
			Name:      "Path#Mailbox",
		}
		createMailbox(t, backend, info)
		deleteMailbox(t, backend, info)
		_ = backend.DeleteMailbox(mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "Path",
		})
	})

	t.Run("DeleteMailboxIsIdempotent", func(t *testing.T) {
		info := mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "Never created",
		}
		err := backend.DeleteMailbox(info)
		assert.NoError(t, err)
	})

	t.Run("SelectMailboxDoesNotExist", func(t *testing.T) {
		info := mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "No mailbox at that name",
		}
		status, err := backend.SelectMailbox(info)
		assert.Nil(t, status)
		require.Error(t, err)
		assert.ErrorIs(t, err, lib.ErrMailboxNotFound)
	})

	t.Run("SelectEmptyMailbox", func(t *testing.T) {
		info := newMailbox(t, backend)
		status, err := backend.SelectMailbox(info)
		require.NoError(t, err)
		t.Logf("%v", status)
		assert.Equal(t, info.Name, status.Name)
		assert.NotZero(t, status.UidValidity)
		assert.Equal(t, uint32(0), status.Messages)
		assert.Equal(t, uint32(0), status.Unseen)
		assert.Equal(t, uint32(0), status.Recent)
		assert.Equal(t, uint64(1), status.UidNext)
		assert.Equal(t, uint64(0), status.HighestModSeq)
	})

	t.Run("AppendMessage", func(t *testing.T) {
		info := newMailbox(t, backend)
		props := mailbox.MessageProperties{
			Flags:        sampleMessageFlags,
			InternalDate: sampleMessageDate,
			Size:         uint32(len(sampleMessage)),
		}
		body := bytes.NewBufferString(sampleMessage)
		msg, err := backend.Add(info, props, body)
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, uint64(1), msg.Uid)

		// Verify the mailbox shows 1 message
		status, err := backend.SelectMailbox(info)
		require.NoError(t, err)
		t.Logf("%v", status)
		assert.Equal(t, info.Name, status.Name)
		assert.Equal(t, uint32(1), status.Messages)
		assert.Equal(t, uint32(0), status.Unseen)
		assert.Equal(t, uint64(2), status.UidNext)
	})

	t.Run("AppendMessageWithWrongSize", func(t *testing.T) {
		info := newMailbox(t, backend)
		props := mailbox.MessageProperties{
			Flags:        sampleMessageFlags,
			InternalDate: sampleMessageDate,
			Size:         uint32(len(sampleMessage)) - 1,
		}
		body := bytes.NewBufferString(sampleMessage)
		_, err := backend.Add(info, props, body)
		assert.Error(t, err)

		// Verify the mailbox still shows no message
		status, err := backend.SelectMailbox(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), status.Messages)
	})

	t.Run("FetchOneMessage", func(t *testing.T) {
		info := newMailbox(t, backend)
		props := mailbox.MessageProperties{
			Flags:        sampleMessageFlags,
			InternalDate: sampleMessageDate,
			Size:         uint32(len(sampleMessage)),
		}
		body := bytes.NewBufferString(sampleMessage)
		added, err := backend.Add(info, props, body)
		require.NoError(t, err)

		messages, err := backend.FindInMailbox(info, mailbox.All(), mailbox.FetchFull, 0)
		require.NoError(t, err)
		require.Len(t, messages, 1)

		msg := messages[0]
		assert.Equal(t, added.Uid, msg.Uid)
		assert.Equal(t, uint32(len(sampleMessage)), msg.Size)
		assert.Equal(t, sampleMessage, string(msg.Content()))
		assert.ElementsMatch(t, sampleMessageFlags, msg.Flags)
		t.Logf("Received message uid=%d size=%d flags=%+v", msg.Uid, msg.Size, msg.Flags)
	})
}

// PrepareBackend creates the INBOX mailbox with one message in it
func PrepareBackend(backend storage.Backend) error {
	info := mailbox.Info{
		Delimiter: backend.Delimiter(),
		Name:      "INBOX",
	}
	existing, err := backend.ListMailbox()
	if err != nil {
		return err
	}
	if mailboxExists(info.Name, existing) {
		// no need to create the mailbox and add a message to it
		return nil
	}
	err = backend.CreateMailbox(info)
	if err != nil {
		return err
	}
	props := mailbox.MessageProperties{
		Flags:        sampleMessageFlags,
		InternalDate: sampleMessageDate,
		Size:         uint32(len(sampleMessage)),
	}
	_, err = backend.Add(info, props, bytes.NewBufferString(sampleMessage))
	return err
}

// newMailbox creates a uniquely named mailbox so each scenario starts from a
// clean slate on the shared backend instance.
func newMailbox(t *testing.T, backend storage.Backend) mailbox.Info {
	t.Helper()

	info := mailbox.Info{
		Delimiter: backend.Delimiter(),
		Name:      fmt.Sprintf("Box%d", atomic.AddUint32(&mailboxCounter, 1)),
	}
	require.NoError(t, backend.CreateMailbox(info))
	return info
}

// messageContent generates a small message with a known body start offset.
func messageContent(sequence int) ([]byte, uint32) {
	headers := fmt.Sprintf("Subject: Test%d \n", sequence)
	return []byte(headers + fmt.Sprintf("\nBody%d\n.\n", sequence)), uint32(len(headers))
}

func addMessage(t *testing.T, backend storage.Backend, info mailbox.Info, sequence int, flags ...string) *mailbox.Message {
	t.Helper()

	content, bodyStart := messageContent(sequence)
	props := mailbox.MessageProperties{
		Flags:        flags,
		InternalDate: sampleMessageDate.Add(time.Duration(sequence) * time.Minute),
		Size:         uint32(len(content)),
		BodyStart:    bodyStart,
	}
	msg, err := backend.Add(info, props, bytes.NewReader(content))
	require.NoError(t, err)
	require.NotNil(t, msg)
	return msg
}

// addMessages adds messages numbered 1 to count, no flags.
func addMessages(t *testing.T, backend storage.Backend, info mailbox.Info, count int) []*mailbox.Message {
	t.Helper()

	messages := make([]*mailbox.Message, count)
	for i := 0; i < count; i++ {
		messages[i] = addMessage(t, backend, info, i+1)
	}
	return messages
}

func createMailbox(t *testing.T, backend storage.Backend, info mailbox.Info) {
	t.Helper()

	err := backend.CreateMailbox(info)
	require.NoError(t, err)

	list, err := backend.ListMailbox()
	require.NoError(t, err)

	name := lib.VerifyDelimiter(info.Name, info.Delimiter, backend.Delimiter())
	assert.True(t, mailboxExists(name, list))
}

func deleteMailbox(t *testing.T, backend storage.Backend, info mailbox.Info) {
	t.Helper()

	err := backend.DeleteMailbox(info)
	require.NoError(t, err)

	list, err := backend.ListMailbox()
	require.NoError(t, err)

	name := lib.VerifyDelimiter(info.Name, info.Delimiter, backend.Delimiter())
	assert.False(t, mailboxExists(name, list))
}

func mailboxExists(name string, in []mailbox.Info) bool {
	for _, mailbox := range in {
		if mailbox.Name == name {
			return true
		}
	}
	return false
}

func uidsOf(messages []*mailbox.Message) []uint64 {
	uids := make([]uint64, len(messages))
	for i, msg := range messages {
		uids[i] = msg.Uid
	}
	return uids
}
