package local

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeInt(t *testing.T) {
	data, err := SerializeInt(11)
	require.NoError(t, err)

	value, err := DeserializeInt(data)
	require.NoError(t, err)
	assert.Equal(t, 11, value)
}

func TestSerializeMessageProperties(t *testing.T) {
	props := &msgProps{
		Flags:     []string{imap.SeenFlag, "keyword"},
		Date:      time.Date(2020, 10, 20, 12, 11, 0, 0, time.UTC),
		Size:      123,
		BodyStart: 16,
		ModSeq:    42,
	}
	data, err := SerializeObject(props)
	require.NoError(t, err)

	decoded, err := DeserializeObject[msgProps](data)
	require.NoError(t, err)
	assert.Equal(t, props, decoded)
}

func TestUidKeysKeepMessagesOrdered(t *testing.T) {
	previous := ""
	for _, uid := range []uint64{1, 2, 9, 10, 11, 99, 100, 1 << 32, 1<<32 + 1} {
		key := string(SerializeUid(msgPrefix, uid))
		assert.Greater(t, key, previous, "key for uid %d must sort after the previous one", uid)
		assert.Equal(t, uid, DeserializeUid(msgPrefix, []byte(key)))
		previous = key
	}
}
