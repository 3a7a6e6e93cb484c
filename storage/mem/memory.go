package mem

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/emersion/go-imap"
)

const Delimiter = "."

// Backend keeps every mailbox in memory. Mostly useful for tests and as the
// reference for how the other backends must behave.
type Backend struct {
	// guards the mailbox map itself; each mailbox has its own lock
	mu        sync.RWMutex
	data      map[string]*memMailbox
	nextIndex uint32
	log       lib.Logger
	uids      *UidProvider
	modSeqs   *ModSeqProvider
}

func New() *Backend {
	return NewWithLogger(nil)
}

func NewWithLogger(logger lib.Logger) *Backend {
	if logger == nil {
		logger = &lib.NoLog{}
	}
	backend := &Backend{
		data: make(map[string]*memMailbox),
		log:  logger,
	}
	backend.uids = &UidProvider{backend: backend}
	backend.modSeqs = &ModSeqProvider{backend: backend}
	return backend
}

func (m *Backend) DebugLogger(logger lib.Logger) {
	m.log = logger
}

func (m *Backend) Uids() *UidProvider {
	return m.uids
}

func (m *Backend) ModSeqs() *ModSeqProvider {
	return m.modSeqs
}

func (m *Backend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]*memMailbox)
	runtime.GC()
	return nil
}

func (m *Backend) Delimiter() string {
	return Delimiter
}

func (m *Backend) Transactional() bool {
	return true
}

func (m *Backend) CreateMailbox(info mailbox.Info) error {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[name]; ok {
		// already exists
		return nil
	}
	m.nextIndex++
	m.data[name] = &memMailbox{
		index:       m.nextIndex,
		uidValidity: lib.NewUidValidity(),
		messages:    make(map[uint64]*memMessage),
	}
	return nil
}

func (m *Backend) ListMailbox() ([]mailbox.Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]mailbox.Info, 0, len(m.data))
	for name, mbox := range m.data {
		list = append(list, mailbox.Info{
			ID:          mailbox.NewIDFromUint(mbox.index),
			Delimiter:   Delimiter,
			Name:        name,
			UidValidity: mbox.uidValidity,
		})
	}
	return list, nil
}

func (m *Backend) DeleteMailbox(info mailbox.Info) error {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}

func (m *Backend) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	name, mbox, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()

	status := &mailbox.Status{
		Name:          name,
		Messages:      uint32(len(mbox.messages)),
		UidValidity:   mbox.uidValidity,
		UidNext:       mbox.lastUid + 1,
		HighestModSeq: mbox.highestModSeq,
	}
	for _, msg := range mbox.messages {
		if !mailbox.HasFlag(msg.flags, imap.SeenFlag) {
			status.Unseen++
		}
		if mailbox.HasFlag(msg.flags, imap.RecentFlag) {
			status.Recent++
		}
	}
	return status, nil
}

func (m *Backend) Add(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (*mailbox.Message, error) {
	_, mbox, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	content, err := mailbox.ReadContent(props, body)
	if err != nil {
		return nil, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()

	uid := mbox.nextUid()
	msg := &memMessage{
		content:   content,
		bodyStart: props.BodyStart,
		flags:     mailbox.NormalizeFlags(props.Flags),
		date:      props.InternalDate,
		modSeq:    mbox.nextModSeq(),
	}
	mbox.messages[uid] = msg
	m.log.Printf("Message saved: mailbox=%q uid=%d size=%d flags=%v", info.Name, uid, len(content), msg.flags)
	return msg.export(uid, mailbox.FetchFull), nil
}

func (m *Backend) Delete(info mailbox.Info, uid uint64) error {
	_, mbox, err := m.mailbox(info)
	if err != nil {
		return err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()
	delete(mbox.messages, uid)
	return nil
}

func (m *Backend) Copy(info mailbox.Info, msg *mailbox.Message) (*mailbox.Message, error) {
	_, mbox, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	content := msg.Content()
	if msg.Size > 0 && len(content) == 0 {
		return nil, fmt.Errorf("%w: message content not loaded", lib.ErrInvalidArgument)
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()

	uid := mbox.nextUid()
	duplicate := &memMessage{
		content:   append([]byte(nil), content...),
		bodyStart: msg.BodyStart,
		flags:     mailbox.NormalizeFlags(lib.WithRecentFlag(msg.Flags)),
		date:      msg.InternalDate,
		modSeq:    mbox.nextModSeq(),
	}
	mbox.messages[uid] = duplicate
	return duplicate.export(uid, mailbox.FetchFull), nil
}

func (m *Backend) FindInMailbox(info mailbox.Info, rng mailbox.Range, fetch mailbox.FetchType, limit int) ([]*mailbox.Message, error) {
	_, mbox, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()

	messages := make([]*mailbox.Message, 0)
	for _, uid := range mbox.sortedUids() {
		if !rng.Contains(uid) {
			continue
		}
		messages = append(messages, mbox.messages[uid].export(uid, fetch))
		if limit > 0 && len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (m *Backend) CountMessages(info mailbox.Info) (uint32, error) {
	_, mbox, err := m.mailbox(info)
	if err != nil {
		return 0, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()
	return uint32(len(mbox.messages)), nil
}

func (m *Backend) CountUnseen(info mailbox.Info) (uint32, error) {
	_, mbox, err := m.mailbox(info)
	if err != nil {
		return 0, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()
	count := uint32(0)
	for _, msg := range mbox.messages {
		if !mailbox.HasFlag(msg.flags, imap.SeenFlag) {
			count++
		}
	}
	return count, nil
}

func (m *Backend) FindRecentUids(info mailbox.Info) ([]uint64, error) {
	_, mbox, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()
	uids := make([]uint64, 0)
	for _, uid := range mbox.sortedUids() {
		if mailbox.HasFlag(mbox.messages[uid].flags, imap.RecentFlag) {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

func (m *Backend) FirstUnseenUid(info mailbox.Info) (uint64, bool, error) {
	_, mbox, err := m.mailbox(info)
	if err != nil {
		return 0, false, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()
	for _, uid := range mbox.sortedUids() {
		if !mailbox.HasFlag(mbox.messages[uid].flags, imap.SeenFlag) {
			return uid, true, nil
		}
	}
	return 0, false, nil
}

func (m *Backend) UpdateFlags(info mailbox.Info, flags []string, value bool, replace bool, rng mailbox.Range) ([]mailbox.UpdatedFlags, error) {
	_, mbox, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()

	affected := make([]uint64, 0)
	for _, uid := range mbox.sortedUids() {
		if rng.Contains(uid) {
			affected = append(affected, uid)
		}
	}
	if len(affected) == 0 {
		return nil, nil
	}
	// one mod-seq for the whole batch
	modSeq := mbox.nextModSeq()
	updated := make([]mailbox.UpdatedFlags, 0, len(affected))
	for _, uid := range affected {
		msg := mbox.messages[uid]
		before := msg.flags
		after := applyFlags(before, flags, value, replace)
		msg.flags = after
		msg.modSeq = modSeq
		updated = append(updated, mailbox.UpdatedFlags{
			Uid:    uid,
			ModSeq: modSeq,
			Before: before,
			After:  append([]string(nil), after...),
		})
	}
	return updated, nil
}

func (m *Backend) Expunge(info mailbox.Info, rng mailbox.Range) (map[uint64]mailbox.Metadata, error) {
	_, mbox, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	mbox.mu.Lock()
	defer mbox.mu.Unlock()

	expunged := make(map[uint64]mailbox.Metadata)
	for _, uid := range mbox.sortedUids() {
		if !rng.Contains(uid) {
			continue
		}
		msg := mbox.messages[uid]
		if !mailbox.HasFlag(msg.flags, imap.DeletedFlag) {
			continue
		}
		expunged[uid] = msg.metadata(uid)
		delete(mbox.messages, uid)
	}
	if len(expunged) > 0 {
		mbox.nextModSeq()
	}
	return expunged, nil
}

func (m *Backend) LastUid(info mailbox.Info) (uint64, error) {
	return m.uids.LastUid(info)
}

func (m *Backend) HighestModSeq(info mailbox.Info) (uint64, error) {
	return m.modSeqs.HighestModSeq(info)
}

func (m *Backend) mailbox(info mailbox.Info) (string, *memMailbox, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	m.mu.RLock()
	defer m.mu.RUnlock()
	mbox, ok := m.data[name]
	if !ok {
		return name, nil, lib.ErrMailboxNotFound
	}
	return name, mbox, nil
}

// applyFlags computes the new flag set for an update. Recent is owned by the
// mailbox: a flag update can neither set nor clear it.
func applyFlags(existing, flags []string, value bool, replace bool) []string {
	flags = lib.StripRecentFlag(flags)
	if replace {
		if mailbox.HasFlag(existing, imap.RecentFlag) {
			flags = append(flags, imap.RecentFlag)
		}
		return mailbox.NormalizeFlags(flags)
	}
	if value {
		return mailbox.AddFlags(existing, flags)
	}
	return mailbox.RemoveFlags(existing, flags)
}
