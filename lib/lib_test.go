package lib

import (
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
)

func TestDelimiter(t *testing.T) {
	fixtures := []struct {
		name             string
		currentDelimiter string
		newDelimiter     string
		expected         string
	}{
		{"name", "", "", "name"},
		{"name", "n", "", "name"},
		{"name", "", "n", "name"},
		{"name", "n", "n", "name"},
		{"name", ".", "/", "name"},
		{"name", "/", ".", "name"},
		{"folder/name", "/", ".", "folder.name"},
		{"folder.name", ".", "/", "folder/name"},
		{"folder/na.me", "/", ".", "folder.na\\.me"},
		{"folder.na/me", ".", "/", "folder/na\\/me"},
	}

	for _, fixture := range fixtures {
		result := VerifyDelimiter(fixture.name, fixture.currentDelimiter, fixture.newDelimiter)
		assert.Equal(t, fixture.expected, result)
	}
}

func TestStripRecentFlag(t *testing.T) {
	assert.Equal(t,
		[]string{imap.SeenFlag},
		StripRecentFlag([]string{imap.SeenFlag, imap.RecentFlag}))
	assert.Equal(t,
		[]string{imap.SeenFlag},
		StripRecentFlag([]string{imap.SeenFlag}))
}

func TestWithRecentFlag(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{imap.SeenFlag, imap.RecentFlag},
		WithRecentFlag([]string{imap.SeenFlag}))
	assert.ElementsMatch(t,
		[]string{imap.RecentFlag},
		WithRecentFlag(nil))
	// no duplicate when already present
	assert.Len(t, WithRecentFlag([]string{imap.RecentFlag}), 1)
}

func TestNewUidValidityIsNeverZero(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.NotZero(t, NewUidValidity())
	}
}

func TestGenerateEmail(t *testing.T) {
	msg, bodyStart := GenerateEmail("user1@example.com", "user2@example.com", 11, 100, 200)
	assert.Greater(t, len(msg), int(bodyStart))
	body := len(msg) - int(bodyStart)
	assert.GreaterOrEqual(t, body, 100)
	assert.LessOrEqual(t, body, 200)
	assert.Contains(t, string(msg[:bodyStart]), "From: user1@example.com")
}
