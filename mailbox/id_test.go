package mailbox

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryEncodingOfID(t *testing.T) {
	fixtures := []ID{
		NewIDFromString("toto"),
		NewIDFromString(""),
		NewIDFromUint(0),
		NewIDFromUint(100),
	}
	for _, id := range fixtures {
		t.Run(id.String(), func(t *testing.T) {
			buffer := &bytes.Buffer{}
			err := gob.NewEncoder(buffer).Encode(id)
			require.NoError(t, err)

			decoded := ID{}
			err = gob.NewDecoder(buffer).Decode(&decoded)
			require.NoError(t, err)
			assert.Equal(t, id.String(), decoded.String())
		})
	}
}

func TestJSONEncodingOfID(t *testing.T) {
	fixtures := []ID{
		NewIDFromString("c11"),
		NewIDFromUint(42),
	}
	for _, id := range fixtures {
		t.Run(id.String(), func(t *testing.T) {
			data, err := json.Marshal(id)
			require.NoError(t, err)

			decoded := ID{}
			err = json.Unmarshal(data, &decoded)
			require.NoError(t, err)
			assert.Equal(t, id, decoded)
		})
	}
}

func TestIDRepresentation(t *testing.T) {
	id := NewIDFromUint(12)
	assert.True(t, id.IsUint())
	assert.False(t, id.IsString())
	assert.Equal(t, "12", id.String())

	id = NewIDFromString("abc")
	assert.False(t, id.IsUint())
	assert.True(t, id.IsString())
	assert.Equal(t, "abc", id.String())

	assert.True(t, EmptyID.IsZero())
}
