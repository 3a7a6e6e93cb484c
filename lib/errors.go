package lib

import "errors"

// The error kinds surfaced by every storage backend. Backends wrap the
// underlying cause with fmt.Errorf("%w: %s", kind, err) so callers can
// inspect the kind with errors.Is.
var (
	ErrMailboxNotFound    = errors.New("mailbox not found")
	ErrMailboxExists      = errors.New("mailbox already exists")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidArgument    = errors.New("invalid argument")
)
