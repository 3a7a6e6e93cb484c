package mailbox

import "time"

type MessageProperties struct {
	// The message flags.
	Flags []string
	// The date the message was received by the server.
	InternalDate time.Time
	// The raw message size in bytes.
	Size uint32
	// Byte offset at which the headers end and the body begins.
	BodyStart uint32
}

// Message is one stored message record. Uid and ModSeq are stamped by the
// store; Headers and Body are only populated according to the FetchType the
// record was read with.
type Message struct {
	MessageProperties
	// Unique within the mailbox, strictly increasing, never reused.
	Uid uint64
	// Version stamp, updated on every mutation of the record.
	ModSeq uint64
	// The header bytes, when materialized.
	Headers []byte
	// The body bytes, when materialized.
	Body []byte
}

// Content returns the raw message bytes. Only meaningful on a record
// materialized with FetchBody or FetchFull.
func (m *Message) Content() []byte {
	if len(m.Body) == 0 {
		return m.Headers
	}
	content := make([]byte, 0, len(m.Headers)+len(m.Body))
	content = append(content, m.Headers...)
	return append(content, m.Body...)
}

// Metadata snapshots the record without its content.
func (m *Message) Metadata() Metadata {
	return Metadata{
		Uid:          m.Uid,
		ModSeq:       m.ModSeq,
		Flags:        append([]string(nil), m.Flags...),
		InternalDate: m.InternalDate,
		Size:         m.Size,
		BodyStart:    m.BodyStart,
	}
}

// Metadata describes a message record at a point in time. Expunge returns
// one per removed record so the protocol layer can build its responses.
type Metadata struct {
	Uid          uint64
	ModSeq       uint64
	Flags        []string
	InternalDate time.Time
	Size         uint32
	BodyStart    uint32
}
