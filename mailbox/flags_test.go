package mailbox

import (
	"strings"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagSetOperations(t *testing.T) {
	flags := AddFlags(nil, []string{imap.FlaggedFlag})
	assert.Equal(t, []string{imap.FlaggedFlag}, flags)

	flags = AddFlags(flags, []string{imap.SeenFlag, imap.FlaggedFlag})
	assert.True(t, FlagsEqual(flags, []string{imap.SeenFlag, imap.FlaggedFlag}))

	flags = RemoveFlags(flags, []string{imap.SeenFlag})
	assert.Equal(t, []string{imap.FlaggedFlag}, flags)

	// removing an absent flag is a no-op
	flags = RemoveFlags(flags, []string{imap.DraftFlag})
	assert.Equal(t, []string{imap.FlaggedFlag}, flags)
}

func TestNormalizeFlags(t *testing.T) {
	flags := NormalizeFlags([]string{"keyword", imap.SeenFlag, "keyword", imap.SeenFlag})
	assert.Equal(t, []string{imap.SeenFlag, "keyword"}, flags)
}

func TestFlagsEqualIgnoresOrder(t *testing.T) {
	assert.True(t, FlagsEqual(
		[]string{imap.SeenFlag, imap.FlaggedFlag},
		[]string{imap.FlaggedFlag, imap.SeenFlag},
	))
	assert.False(t, FlagsEqual(
		[]string{imap.SeenFlag},
		[]string{imap.FlaggedFlag},
	))
}

func TestReadContent(t *testing.T) {
	content := "Subject: Test1 \n\nBody1\n.\n"
	props := MessageProperties{
		Size:      uint32(len(content)),
		BodyStart: 16,
	}
	data, err := ReadContent(props, strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	headers, body := SplitContent(data, props.BodyStart)
	assert.Equal(t, "Subject: Test1 \n", string(headers))
	assert.Equal(t, "\nBody1\n.\n", string(body))
}

func TestReadContentSizeMismatch(t *testing.T) {
	content := "Subject: Test1 \n\nBody1\n.\n"

	props := MessageProperties{Size: uint32(len(content)) - 1}
	_, err := ReadContent(props, strings.NewReader(content))
	assert.Error(t, err)

	props = MessageProperties{Size: uint32(len(content)) + 1}
	_, err = ReadContent(props, strings.NewReader(content))
	assert.Error(t, err)
}

func TestReadContentBodyStartBeyondSize(t *testing.T) {
	props := MessageProperties{Size: 5, BodyStart: 10}
	_, err := ReadContent(props, strings.NewReader("12345"))
	assert.Error(t, err)
}
