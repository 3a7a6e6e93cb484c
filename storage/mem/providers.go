package mem

import (
	"github.com/creativeprojects/mailstore/mailbox"
)

// UidProvider owns the per-mailbox UID counter. The counter only moves
// forward, deleting messages leaves gaps that are never filled.
type UidProvider struct {
	backend *Backend
}

func (p *UidProvider) NextUid(info mailbox.Info) (uint64, error) {
	_, mbox, err := p.backend.mailbox(info)
	if err != nil {
		return 0, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()
	return mbox.nextUid(), nil
}

func (p *UidProvider) LastUid(info mailbox.Info) (uint64, error) {
	_, mbox, err := p.backend.mailbox(info)
	if err != nil {
		return 0, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()
	return mbox.lastUid, nil
}

// ModSeqProvider owns the per-mailbox modification sequence counter.
type ModSeqProvider struct {
	backend *Backend
}

func (p *ModSeqProvider) NextModSeq(info mailbox.Info) (uint64, error) {
	_, mbox, err := p.backend.mailbox(info)
	if err != nil {
		return 0, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()
	return mbox.nextModSeq(), nil
}

func (p *ModSeqProvider) HighestModSeq(info mailbox.Info) (uint64, error) {
	_, mbox, err := p.backend.mailbox(info)
	if err != nil {
		return 0, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()
	return mbox.highestModSeq, nil
}
