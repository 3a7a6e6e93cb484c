package mdir

import (
	"github.com/creativeprojects/mailstore/mailbox"
)

// UidProvider allocates message UIDs from the mailbox index.
type UidProvider struct {
	store *Maildir
}

func (p *UidProvider) NextUid(info mailbox.Info) (uint64, error) {
	return p.store.allocate(info, func(index *mailboxIndex) uint64 {
		return index.nextUid()
	})
}

func (p *UidProvider) LastUid(info mailbox.Info) (uint64, error) {
	return p.store.LastUid(info)
}

// ModSeqProvider allocates modification sequences from the mailbox index.
type ModSeqProvider struct {
	store *Maildir
}

func (p *ModSeqProvider) NextModSeq(info mailbox.Info) (uint64, error) {
	return p.store.allocate(info, func(index *mailboxIndex) uint64 {
		return index.nextModSeq()
	})
}

func (p *ModSeqProvider) HighestModSeq(info mailbox.Info) (uint64, error) {
	return p.store.HighestModSeq(info)
}

func (m *Maildir) allocate(info mailbox.Info, bump func(*mailboxIndex) uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, index, err := m.mailbox(info)
	if err != nil {
		return 0, err
	}
	value := bump(index)
	if err = saveIndex(m.indexFile(name), index); err != nil {
		return 0, err
	}
	return value, nil
}
