package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/limitio"
)

// ReadContent materializes a message body stream into raw bytes. When the
// properties declare a size, reading stops there and a mismatch between the
// declared and the delivered size is an error. Bytes are kept verbatim, the
// store never reinterprets or transcodes them.
func ReadContent(props MessageProperties, body io.Reader) ([]byte, error) {
	reader := limitio.NewReader(body)
	if props.Size > 0 {
		reader.SetSizeLimit(int64(props.Size))
	}
	buffer := &bytes.Buffer{}
	read, err := buffer.ReadFrom(reader)
	if err != nil {
		if errors.Is(err, limitio.ErrSizeExceeded) {
			return nil, fmt.Errorf("message body size advertised as %d bytes but the stream is longer", props.Size)
		}
		return nil, fmt.Errorf("cannot read message body: %w", err)
	}
	if props.Size > 0 && read != int64(props.Size) {
		return nil, fmt.Errorf("message body size advertised as %d bytes but read %d bytes from buffer", props.Size, read)
	}
	if int64(props.BodyStart) > int64(buffer.Len()) {
		return nil, fmt.Errorf("%w: body start %d beyond message size %d", lib.ErrInvalidArgument, props.BodyStart, buffer.Len())
	}
	return buffer.Bytes(), nil
}

// SplitContent cuts raw message bytes at the body-start offset.
func SplitContent(content []byte, bodyStart uint32) (headers, body []byte) {
	if int64(bodyStart) > int64(len(content)) {
		bodyStart = uint32(len(content))
	}
	return content[:bodyStart], content[bodyStart:]
}
