package storage

import (
	"fmt"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
)

// MailboxCache caches resolved mailboxes by their backend-assigned numeric
// index for the duration of one request, so a mailbox renamed mid-request is
// still reachable through its stable index. Create one at request start and
// discard it at request end; it is not safe for concurrent use and is never
// shared between requests.
type MailboxCache struct {
	backend Backend
	entries map[uint32]mailbox.Info
}

func NewMailboxCache(backend Backend) *MailboxCache {
	return &MailboxCache{
		backend: backend,
		entries: make(map[uint32]mailbox.Info),
	}
}

// Resolve returns the mailbox with that index, listing the backend's
// mailboxes on a cache miss.
func (c *MailboxCache) Resolve(index uint32) (mailbox.Info, error) {
	if info, ok := c.entries[index]; ok {
		return info, nil
	}
	list, err := c.backend.ListMailbox()
	if err != nil {
		return mailbox.Info{}, fmt.Errorf("cannot list mailboxes: %w", err)
	}
	for _, info := range list {
		if info.ID.IsUint() {
			c.entries[info.ID.AsUint()] = info
		}
	}
	if info, ok := c.entries[index]; ok {
		return info, nil
	}
	return mailbox.Info{}, fmt.Errorf("%w: index %d", lib.ErrMailboxNotFound, index)
}

// Forget drops one entry, forcing the next Resolve to re-list.
func (c *MailboxCache) Forget(index uint32) {
	delete(c.entries, index)
}
