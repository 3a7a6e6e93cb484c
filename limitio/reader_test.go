package limitio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderWithoutLimit(t *testing.T) {
	reader := NewReader(strings.NewReader("some content"))
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "some content", string(data))
}

func TestReaderAtExactSizeLimit(t *testing.T) {
	reader := NewReader(strings.NewReader("some content"))
	reader.SetSizeLimit(12)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "some content", string(data))
}

func TestReaderOverSizeLimit(t *testing.T) {
	reader := NewReader(strings.NewReader("some content and then some"))
	reader.SetSizeLimit(12)
	buffer := &bytes.Buffer{}
	_, err := buffer.ReadFrom(reader)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeExceeded))
	assert.Equal(t, "some content", buffer.String())
}

func TestReaderSizeLimitOneByteAtATime(t *testing.T) {
	reader := NewReader(iotest(strings.NewReader("abcd")))
	reader.SetSizeLimit(3)
	buffer := make([]byte, 1)
	total := 0
	var err error
	for {
		var n int
		n, err = reader.Read(buffer)
		total += n
		if err != nil {
			break
		}
	}
	assert.Equal(t, 3, total)
	assert.True(t, errors.Is(err, ErrSizeExceeded))
}

func TestReaderOverSizeLimitWithRateLimit(t *testing.T) {
	reader := NewReader(strings.NewReader("some content and then some"))
	reader.SetRateLimit(1024*1024, 64)
	reader.SetSizeLimit(12)
	buffer := &bytes.Buffer{}
	_, err := buffer.ReadFrom(reader)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeExceeded))
	assert.Equal(t, "some content", buffer.String())
}

func TestReaderWithRateLimit(t *testing.T) {
	reader := NewReader(strings.NewReader("some content"))
	reader.SetRateLimit(1024*1024, 64)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "some content", string(data))
}

// iotest forces single-byte reads from the source
type singleByteReader struct {
	source io.Reader
}

func iotest(r io.Reader) io.Reader {
	return &singleByteReader{source: r}
}

func (r *singleByteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return r.source.Read(p)
}
