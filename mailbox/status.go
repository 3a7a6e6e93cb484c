package mailbox

// Status is the aggregate view of a mailbox, the answer to a SELECT.
type Status struct {
	// The mailbox name.
	Name string

	// The number of messages in this mailbox.
	Messages uint32
	// The number of unseen messages.
	Unseen uint32
	// The number of messages carrying the Recent flag.
	Recent uint32

	// Together with a UID, it is a unique identifier for a message.
	// Must be greater than or equal to 1.
	UidValidity uint32
	// The UID the next message will be allocated.
	UidNext uint64
	// The highest mod-seq allocated in this mailbox, 0 when never mutated.
	HighestModSeq uint64
}
