package mdir

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-maildir"
)

const Delimiter = "."

// Maildir keeps message content in standard maildir folders and everything
// else (UIDs, flags, mod-sequences) in a JSON index next to each folder.
// The index is the authority when it disagrees with the file system.
type Maildir struct {
	root string
	log  lib.Logger
	mu   sync.Mutex
}

func New(root string) (*Maildir, error) {
	return NewWithLogger(root, nil)
}

func NewWithLogger(root string, logger lib.Logger) (*Maildir, error) {
	if runtime.GOOS == "windows" {
		return nil, errors.New("maildir is not supported on Windows")
	}
	if logger == nil {
		logger = &lib.NoLog{}
	}
	err := os.MkdirAll(root, 0700)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return &Maildir{
		root: root,
		log:  logger,
	}, nil
}

func (m *Maildir) DebugLogger(logger lib.Logger) {
	m.log = logger
}

func (m *Maildir) Uids() *UidProvider {
	return &UidProvider{store: m}
}

func (m *Maildir) ModSeqs() *ModSeqProvider {
	return &ModSeqProvider{store: m}
}

func (m *Maildir) Delimiter() string {
	return Delimiter
}

func (m *Maildir) Transactional() bool {
	return false
}

func (m *Maildir) Close() error {
	return nil
}

func (m *Maildir) Root() string {
	return m.root
}

// CreateMailbox doesn't return an error if the mailbox already exists
func (m *Maildir) CreateMailbox(info mailbox.Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	dirName := filepath.Join(m.root, name)
	if _, err := os.Stat(dirName); err == nil || errors.Is(err, fs.ErrExist) {
		return nil
	}
	mbox := maildir.Dir(dirName)
	if err := mbox.Init(); err != nil {
		return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return saveIndex(m.indexFile(name), newMailboxIndex())
}

func (m *Maildir) ListMailbox() ([]mailbox.Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]mailbox.Info, 0)
	files, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	for _, file := range files {
		if !file.IsDir() {
			continue
		}
		info := mailbox.Info{
			Delimiter: Delimiter,
			Name:      file.Name(),
		}
		if index, err := loadIndex(m.indexFile(file.Name())); err == nil {
			info.UidValidity = index.UidValidity
		}
		list = append(list, info)
	}
	return list, nil
}

func (m *Maildir) DeleteMailbox(info mailbox.Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	_ = os.Remove(m.indexFile(name))
	return os.RemoveAll(filepath.Join(m.root, name))
}

func (m *Maildir) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, index, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	status := &mailbox.Status{
		Name:          name,
		Messages:      uint32(len(index.Messages)),
		UidValidity:   index.UidValidity,
		UidNext:       index.LastUid + 1,
		HighestModSeq: index.HighestModSeq,
	}
	for _, entry := range index.Messages {
		if !mailbox.HasFlag(entry.Flags, imap.SeenFlag) {
			status.Unseen++
		}
		if mailbox.HasFlag(entry.Flags, imap.RecentFlag) {
			status.Recent++
		}
	}
	return status, nil
}

func (m *Maildir) Add(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (*mailbox.Message, error) {
	content, err := mailbox.ReadContent(props, body)
	if err != nil {
		return nil, err
	}
	flags := mailbox.NormalizeFlags(props.Flags)

	m.mu.Lock()
	defer m.mu.Unlock()

	name, index, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	uid := index.nextUid()
	modSeq := index.nextModSeq()
	msg, err := m.createFromBuffer(name, flags, content, props.InternalDate)
	if err != nil {
		return nil, err
	}
	index.Messages[uid] = indexEntry{
		Key:          msg.Key(),
		Flags:        flags,
		InternalDate: props.InternalDate,
		Size:         uint32(len(content)),
		BodyStart:    props.BodyStart,
		ModSeq:       modSeq,
	}
	if err = saveIndex(m.indexFile(name), index); err != nil {
		_ = os.Remove(msg.Filename())
		return nil, err
	}
	m.log.Printf("Message saved: mailbox=%q uid=%d key=%q size=%d flags=%v", name, uid, msg.Key(), len(content), flags)
	return exportMessage(uid, index.Messages[uid], content, mailbox.FetchFull), nil
}

func (m *Maildir) Delete(info mailbox.Info, uid uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, index, err := m.mailbox(info)
	if err != nil {
		return err
	}
	entry, found := index.Messages[uid]
	if !found {
		return nil
	}
	m.removeFile(name, entry.Key)
	delete(index.Messages, uid)
	return saveIndex(m.indexFile(name), index)
}

func (m *Maildir) Copy(info mailbox.Info, msg *mailbox.Message) (*mailbox.Message, error) {
	content := msg.Content()
	if msg.Size > 0 && len(content) == 0 {
		return nil, fmt.Errorf("%w: message content not loaded", lib.ErrInvalidArgument)
	}
	flags := mailbox.NormalizeFlags(lib.WithRecentFlag(msg.Flags))

	m.mu.Lock()
	defer m.mu.Unlock()

	name, index, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	uid := index.nextUid()
	modSeq := index.nextModSeq()
	created, err := m.createFromBuffer(name, flags, content, msg.InternalDate)
	if err != nil {
		return nil, err
	}
	index.Messages[uid] = indexEntry{
		Key:          created.Key(),
		Flags:        flags,
		InternalDate: msg.InternalDate,
		Size:         uint32(len(content)),
		BodyStart:    msg.BodyStart,
		ModSeq:       modSeq,
	}
	if err = saveIndex(m.indexFile(name), index); err != nil {
		_ = os.Remove(created.Filename())
		return nil, err
	}
	return exportMessage(uid, index.Messages[uid], content, mailbox.FetchFull), nil
}

func (m *Maildir) FindInMailbox(info mailbox.Info, rng mailbox.Range, fetch mailbox.FetchType, limit int) ([]*mailbox.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, index, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	messages := make([]*mailbox.Message, 0)
	for _, uid := range index.sortedUids() {
		if !rng.Contains(uid) {
			continue
		}
		entry := index.Messages[uid]
		var content []byte
		if fetch != mailbox.FetchMetadata {
			content, err = m.readFile(name, entry.Key)
			if err != nil {
				return nil, err
			}
		}
		messages = append(messages, exportMessage(uid, entry, content, fetch))
		if limit > 0 && len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (m *Maildir) CountMessages(info mailbox.Info) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, index, err := m.mailbox(info)
	if err != nil {
		return 0, err
	}
	return uint32(len(index.Messages)), nil
}

func (m *Maildir) CountUnseen(info mailbox.Info) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, index, err := m.mailbox(info)
	if err != nil {
		return 0, err
	}
	count := uint32(0)
	for _, entry := range index.Messages {
		if !mailbox.HasFlag(entry.Flags, imap.SeenFlag) {
			count++
		}
	}
	return count, nil
}

func (m *Maildir) FindRecentUids(info mailbox.Info) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, index, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	uids := make([]uint64, 0)
	for _, uid := range index.sortedUids() {
		if mailbox.HasFlag(index.Messages[uid].Flags, imap.RecentFlag) {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

func (m *Maildir) FirstUnseenUid(info mailbox.Info) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, index, err := m.mailbox(info)
	if err != nil {
		return 0, false, err
	}
	for _, uid := range index.sortedUids() {
		if !mailbox.HasFlag(index.Messages[uid].Flags, imap.SeenFlag) {
			return uid, true, nil
		}
	}
	return 0, false, nil
}

func (m *Maildir) UpdateFlags(info mailbox.Info, flags []string, value bool, replace bool, rng mailbox.Range) ([]mailbox.UpdatedFlags, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, index, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	affected := make([]uint64, 0)
	for _, uid := range index.sortedUids() {
		if rng.Contains(uid) {
			affected = append(affected, uid)
		}
	}
	updated := make([]mailbox.UpdatedFlags, 0, len(affected))
	if len(affected) == 0 {
		return updated, nil
	}
	// one mod-seq for the whole batch
	modSeq := index.nextModSeq()
	for _, uid := range affected {
		entry := index.Messages[uid]
		before := entry.Flags
		after := applyFlags(before, flags, value, replace)
		entry.Flags = after
		entry.ModSeq = modSeq
		index.Messages[uid] = entry
		updated = append(updated, mailbox.UpdatedFlags{
			Uid:    uid,
			ModSeq: modSeq,
			Before: before,
			After:  after,
		})
	}
	if err = saveIndex(m.indexFile(name), index); err != nil {
		return nil, err
	}
	return updated, nil
}

func (m *Maildir) Expunge(info mailbox.Info, rng mailbox.Range) (map[uint64]mailbox.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, index, err := m.mailbox(info)
	if err != nil {
		return nil, err
	}
	expunged := make(map[uint64]mailbox.Metadata)
	for _, uid := range index.sortedUids() {
		entry := index.Messages[uid]
		if !rng.Contains(uid) || !mailbox.HasFlag(entry.Flags, imap.DeletedFlag) {
			continue
		}
		expunged[uid] = mailbox.Metadata{
			Uid:          uid,
			ModSeq:       entry.ModSeq,
			Flags:        entry.Flags,
			InternalDate: entry.InternalDate,
			Size:         entry.Size,
			BodyStart:    entry.BodyStart,
		}
		m.removeFile(name, entry.Key)
		delete(index.Messages, uid)
	}
	if len(expunged) == 0 {
		return expunged, nil
	}
	index.nextModSeq()
	if err = saveIndex(m.indexFile(name), index); err != nil {
		return nil, err
	}
	return expunged, nil
}

func (m *Maildir) LastUid(info mailbox.Info) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, index, err := m.mailbox(info)
	if err != nil {
		return 0, err
	}
	return index.LastUid, nil
}

func (m *Maildir) HighestModSeq(info mailbox.Info) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, index, err := m.mailbox(info)
	if err != nil {
		return 0, err
	}
	return index.HighestModSeq, nil
}

// mailbox loads the index for a mailbox. Call with the lock held.
func (m *Maildir) mailbox(info mailbox.Info) (string, *mailboxIndex, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	if !m.mailboxExists(name) {
		return name, nil, lib.ErrMailboxNotFound
	}
	index, err := loadIndex(m.indexFile(name))
	if err != nil {
		return name, nil, err
	}
	return name, index, nil
}

func (m *Maildir) createFromBuffer(name string, flags []string, content []byte, date time.Time) (*maildir.Message, error) {
	mbox := maildir.Dir(filepath.Join(m.root, name))
	msg, writer, err := mbox.Create(toFlags(flags))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	_, err = io.Copy(writer, bytes.NewReader(content))
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(msg.Filename())
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	if !date.IsZero() {
		_ = os.Chtimes(msg.Filename(), time.Now(), date)
	}
	return msg, nil
}

func (m *Maildir) readFile(name, key string) ([]byte, error) {
	mbox := maildir.Dir(filepath.Join(m.root, name))
	msg, err := mbox.MessageByKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot find key %q: %s", lib.ErrStorageUnavailable, key, err)
	}
	file, err := msg.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open key %q: %s", lib.ErrStorageUnavailable, key, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read key %q: %s", lib.ErrStorageUnavailable, key, err)
	}
	return content, nil
}

func (m *Maildir) removeFile(name, key string) {
	mbox := maildir.Dir(filepath.Join(m.root, name))
	msg, err := mbox.MessageByKey(key)
	if err != nil {
		return
	}
	if err = msg.Remove(); err != nil && !os.IsNotExist(err) {
		m.log.Printf("cannot remove key %q: %v", key, err)
	}
}

func (m *Maildir) mailboxExists(name string) bool {
	stat, err := os.Stat(filepath.Join(m.root, name))
	if err != nil {
		return false
	}
	return stat.IsDir()
}

func (m *Maildir) indexFile(name string) string {
	return filepath.Join(m.root, name+".index.json")
}

func exportMessage(uid uint64, entry indexEntry, content []byte, fetch mailbox.FetchType) *mailbox.Message {
	message := &mailbox.Message{
		MessageProperties: mailbox.MessageProperties{
			Flags:        entry.Flags,
			InternalDate: entry.InternalDate,
			Size:         entry.Size,
			BodyStart:    entry.BodyStart,
		},
		Uid:    uid,
		ModSeq: entry.ModSeq,
	}
	if fetch == mailbox.FetchMetadata {
		return message
	}
	headers, body := mailbox.SplitContent(content, entry.BodyStart)
	message.Headers = append([]byte(nil), headers...)
	if fetch != mailbox.FetchHeaders {
		message.Body = append([]byte(nil), body...)
	}
	return message
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
