package storage

import (
	"fmt"
	"io"

	"github.com/creativeprojects/mailstore/cfg"
	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/storage/local"
	"github.com/creativeprojects/mailstore/storage/mdir"
	"github.com/creativeprojects/mailstore/storage/mem"
	"github.com/creativeprojects/mailstore/storage/sqlite"
)

// UidProvider allocates message UIDs for a mailbox. NextUid returns a value
// strictly greater than every UID ever allocated in that mailbox, safe under
// concurrent callers. Gaps after deletion are expected and never reused.
type UidProvider interface {
	NextUid(mbox mailbox.Info) (uint64, error)
	// LastUid returns 0 when no UID was ever allocated in the mailbox.
	LastUid(mbox mailbox.Info) (uint64, error)
}

// ModSeqProvider allocates the per-mailbox modification sequence. Every
// mutation of the mailbox message set takes a mod-seq strictly greater than
// the previous highest, which gives observers a cheap "anything changed
// since X" check.
type ModSeqProvider interface {
	NextModSeq(mbox mailbox.Info) (uint64, error)
	// HighestModSeq returns 0 when the mailbox has never been mutated.
	HighestModSeq(mbox mailbox.Info) (uint64, error)
}

// Mapper is the message store contract every backend implements with the
// same externally observable behavior. A missing message UID, an empty range
// or nothing to expunge are empty results, not errors; only a mailbox that
// was never created is an error.
type Mapper interface {
	// Add persists a new message with a fresh UID and mod-seq. The supplied
	// flags are stored as-is, so a message can be seeded already Seen.
	// The returned record is fully materialized.
	Add(mbox mailbox.Info, props mailbox.MessageProperties, body io.Reader) (*mailbox.Message, error)
	// Delete removes the record with that UID. Deleting an absent UID is a
	// no-op.
	Delete(mbox mailbox.Info, uid uint64) error
	// Copy creates a new record in mbox with the source's flags and content
	// but a fresh UID and mod-seq, and marks it Recent. The source must have
	// been fetched with FetchFull.
	Copy(mbox mailbox.Info, msg *mailbox.Message) (*mailbox.Message, error)
	// FindInMailbox returns the records matching rng in ascending UID order,
	// materialized according to fetch. A limit of 0 means unbounded.
	FindInMailbox(mbox mailbox.Info, rng mailbox.Range, fetch mailbox.FetchType, limit int) ([]*mailbox.Message, error)
	CountMessages(mbox mailbox.Info) (uint32, error)
	CountUnseen(mbox mailbox.Info) (uint32, error)
	// FindRecentUids returns the UIDs carrying the Recent flag, ascending.
	FindRecentUids(mbox mailbox.Info) ([]uint64, error)
	// FirstUnseenUid returns the lowest UID lacking the Seen flag. The
	// boolean is false when every message is seen or the mailbox is empty.
	FirstUnseenUid(mbox mailbox.Info) (uint64, bool, error)
	// UpdateFlags applies one flag transition to every record in rng:
	// replace the whole set when replace is true, add flags when value is
	// true, remove them otherwise. It reports one transition per record in
	// range, each stamped with a freshly allocated mod-seq.
	UpdateFlags(mbox mailbox.Info, flags []string, value bool, replace bool, rng mailbox.Range) ([]mailbox.UpdatedFlags, error)
	// Expunge permanently removes every record in rng carrying the Deleted
	// flag and returns the metadata of each removed record, keyed by UID.
	Expunge(mbox mailbox.Info, rng mailbox.Range) (map[uint64]mailbox.Metadata, error)
	LastUid(mbox mailbox.Info) (uint64, error)
	HighestModSeq(mbox mailbox.Info) (uint64, error)
}

// Backend is a message store plus the mailbox admin boundary around it.
type Backend interface {
	// DebugLogger sets a logger to send debug information to
	DebugLogger(logger lib.Logger)
	// Delimiter used to construct a path of mailboxes with its children
	Delimiter() string
	// Transactional reports whether the backend applies a whole range
	// mutation atomically. Non-transactional backends still guarantee that
	// each individual record mutation is atomic.
	Transactional() bool
	// Close the backend
	Close() error
	// CreateMailbox assigns an ID and a uid-validity to a new mailbox.
	// Creating a mailbox that already exists is not an error.
	CreateMailbox(info mailbox.Info) error
	ListMailbox() ([]mailbox.Info, error)
	DeleteMailbox(info mailbox.Info) error
	// SelectMailbox returns the aggregate status of a mailbox
	SelectMailbox(info mailbox.Info) (*mailbox.Status, error)

	Mapper
}

// verify interfaces
var (
	_ Backend = &mem.Backend{}
	_ Backend = &local.BoltStore{}
	_ Backend = &sqlite.Store{}
	_ Backend = &mdir.Maildir{}

	_ UidProvider = &mem.UidProvider{}
	_ UidProvider = &local.UidProvider{}
	_ UidProvider = &sqlite.UidProvider{}
	_ UidProvider = &mdir.UidProvider{}

	_ ModSeqProvider = &mem.ModSeqProvider{}
	_ ModSeqProvider = &local.ModSeqProvider{}
	_ ModSeqProvider = &sqlite.ModSeqProvider{}
	_ ModSeqProvider = &mdir.ModSeqProvider{}
)

func NewBackend(config cfg.Account) (Backend, error) {
	switch config.Type {
	case cfg.MEMORY:
		return mem.New(), nil
	case cfg.LOCAL:
		store, err := local.NewBoltStore(config.File)
		if err != nil {
			return nil, err
		}
		if err = store.Init(); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case cfg.SQLITE:
		return sqlite.NewStore(config.File)
	case cfg.MAILDIR:
		return mdir.New(config.Root)
	default:
		return nil, fmt.Errorf("unsupported account type %q", config.Type)
	}
}
