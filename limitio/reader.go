package limitio

import (
	"context"
	"errors"
	"io"

	"golang.org/x/time/rate"
)

// ErrSizeExceeded is returned by Read when the source delivers more bytes
// than the configured size limit.
var ErrSizeExceeded = errors.New("size limit exceeded")

type Reader struct {
	source  io.Reader
	limiter *rate.Limiter
	max     int64
	read    int64
}

// NewReader returns a reader that implements io.Reader with an optional hard
// size cap and optional rate limiting.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		source: r,
	}
}

// SetRateLimit sets rate limit (bytes/sec) to the reader.
func (s *Reader) SetRateLimit(bytesPerSec float64, burst int) {
	s.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// SetSizeLimit caps the total number of bytes the reader accepts. Reading
// past the cap returns ErrSizeExceeded instead of io.EOF.
func (s *Reader) SetSizeLimit(max int64) {
	s.max = max
}

// Read bytes into p.
func (s *Reader) Read(p []byte) (int, error) {
	if s.max > 0 {
		if s.read >= s.max {
			// a single probe byte tells a legitimate EOF from an overflow
			var probe [1]byte
			n, err := s.readThrottled(probe[:])
			if n > 0 {
				return 0, ErrSizeExceeded
			}
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		if remaining := s.max - s.read; int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	n, err := s.readThrottled(p)
	s.read += int64(n)
	return n, err
}

func (s *Reader) readThrottled(p []byte) (int, error) {
	if s.limiter == nil {
		return s.source.Read(p)
	}
	// ask for a burst of data
	err := s.limiter.WaitN(context.Background(), s.limiter.Burst())
	if err != nil {
		return 0, err
	}
	n, err := s.source.Read(p)
	if err != nil {
		return n, err
	}
	// then wait for the tokens to allow the time needed for reading it all
	left := n - s.limiter.Burst()
	for left > 0 {
		singleRead := left
		if singleRead > s.limiter.Burst() {
			singleRead = s.limiter.Burst()
		}
		err = s.limiter.WaitN(context.Background(), singleRead)
		if err != nil {
			return n, err
		}
		left -= singleRead
	}
	return n, nil
}
