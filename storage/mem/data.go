package mem

import (
	"sort"
	"sync"
	"time"

	"github.com/creativeprojects/mailstore/mailbox"
)

type memMessage struct {
	content   []byte
	bodyStart uint32
	flags     []string
	date      time.Time
	modSeq    uint64
}

type memMailbox struct {
	// guards the message map and both counters
	mu            sync.Mutex
	index         uint32
	uidValidity   uint32
	lastUid       uint64
	highestModSeq uint64
	messages      map[uint64]*memMessage
}

// nextUid must be called with mu held.
func (m *memMailbox) nextUid() uint64 {
	m.lastUid++
	return m.lastUid
}

// nextModSeq must be called with mu held.
func (m *memMailbox) nextModSeq() uint64 {
	m.highestModSeq++
	return m.highestModSeq
}

// sortedUids returns every UID in ascending order. Call with mu held.
func (m *memMailbox) sortedUids() []uint64 {
	uids := make([]uint64, 0, len(m.messages))
	for uid := range m.messages {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}

// export materializes a record according to the fetch type.
func (msg *memMessage) export(uid uint64, fetch mailbox.FetchType) *mailbox.Message {
	output := &mailbox.Message{
		MessageProperties: mailbox.MessageProperties{
			Flags:        append([]string(nil), msg.flags...),
			InternalDate: msg.date,
			Size:         uint32(len(msg.content)),
			BodyStart:    msg.bodyStart,
		},
		Uid:    uid,
		ModSeq: msg.modSeq,
	}
	headers, body := mailbox.SplitContent(msg.content, msg.bodyStart)
	switch fetch {
	case mailbox.FetchHeaders:
		output.Headers = append([]byte(nil), headers...)
	case mailbox.FetchBody, mailbox.FetchFull:
		output.Headers = append([]byte(nil), headers...)
		output.Body = append([]byte(nil), body...)
	}
	return output
}

func (msg *memMessage) metadata(uid uint64) mailbox.Metadata {
	return mailbox.Metadata{
		Uid:          uid,
		ModSeq:       msg.modSeq,
		Flags:        append([]string(nil), msg.flags...),
		InternalDate: msg.date,
		Size:         uint32(len(msg.content)),
		BodyStart:    msg.bodyStart,
	}
}
