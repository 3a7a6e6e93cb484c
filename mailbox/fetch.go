package mailbox

// FetchType selects how much of a message record is materialized on read.
// It never changes which records match a query, only what is populated on
// each returned record.
type FetchType int

const (
	// FetchMetadata loads identity, flags and mod-seq only.
	FetchMetadata FetchType = iota
	// FetchHeaders additionally loads the header bytes.
	FetchHeaders
	// FetchBody additionally loads the header and body bytes.
	FetchBody
	// FetchFull loads everything.
	FetchFull
)

func (f FetchType) String() string {
	switch f {
	case FetchMetadata:
		return "Metadata"
	case FetchHeaders:
		return "Headers"
	case FetchBody:
		return "Body"
	case FetchFull:
		return "Full"
	}
	return "Unknown"
}
