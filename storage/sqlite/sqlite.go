package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/emersion/go-imap"
	_ "modernc.org/sqlite"
)

const Delimiter = "."

const schema = `
	CREATE TABLE IF NOT EXISTS mailboxes (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		name           TEXT NOT NULL UNIQUE,
		uid_validity   INTEGER NOT NULL,
		last_uid       INTEGER NOT NULL DEFAULT 0,
		highest_modseq INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS messages (
		mailbox_id    INTEGER NOT NULL REFERENCES mailboxes(id) ON DELETE CASCADE,
		uid           INTEGER NOT NULL,
		modseq        INTEGER NOT NULL,
		flags         TEXT NOT NULL,
		seen          INTEGER NOT NULL DEFAULT 0,
		recent        INTEGER NOT NULL DEFAULT 0,
		deleted       INTEGER NOT NULL DEFAULT 0,
		internal_date INTEGER NOT NULL,
		size          INTEGER NOT NULL,
		body_start    INTEGER NOT NULL,
		content       BLOB NOT NULL,
		PRIMARY KEY (mailbox_id, uid)
	);
`

// dbRequest represents a database write request
type dbRequest struct {
	fn   func(*sql.Tx) error
	done chan error
}

// Store is the relational backend. All writes are funnelled through a single
// writer goroutine, one transaction each, which serializes UID and mod-seq
// allocation without locking in the readers.
type Store struct {
	db        *sql.DB
	log       lib.Logger
	writeChan chan dbRequest
	mu        sync.Mutex
	closed    bool
	uids      *UidProvider
	modSeqs   *ModSeqProvider
}

func NewStore(filename string) (*Store, error) {
	return NewStoreWithLogger(filename, nil)
}

func NewStoreWithLogger(filename string, logger lib.Logger) (*Store, error) {
	if logger == nil {
		logger = &lib.NoLog{}
	}
	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", filename, err)
	}
	db, err := sql.Open("sqlite", "file:"+filename+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	store := &Store{
		db:        db,
		log:       logger,
		writeChan: make(chan dbRequest),
	}
	store.uids = &UidProvider{store: store}
	store.modSeqs = &ModSeqProvider{store: store}
	store.start()
	return store, nil
}

// start the single writer goroutine
func (s *Store) start() {
	go func() {
		for req := range s.writeChan {
			tx, err := s.db.Begin()
			if err != nil {
				req.done <- fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
				continue
			}
			if err := req.fn(tx); err != nil {
				_ = tx.Rollback()
				req.done <- err
			} else {
				req.done <- tx.Commit()
			}
		}
	}()
}

// withTx sends a write request through the writer goroutine. The mutex only
// fences the channel against Close: a send on a closed channel would panic.
func (s *Store) withTx(fn func(*sql.Tx) error) error {
	done := make(chan error)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: store is closed", lib.ErrStorageUnavailable)
	}
	s.writeChan <- dbRequest{fn: fn, done: done}
	s.mu.Unlock()
	return <-done
}

func (s *Store) DebugLogger(logger lib.Logger) {
	s.log = logger
}

func (s *Store) Uids() *UidProvider {
	return s.uids
}

func (s *Store) ModSeqs() *ModSeqProvider {
	return s.modSeqs
}

func (s *Store) Delimiter() string {
	return Delimiter
}

func (s *Store) Transactional() bool {
	return true
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.writeChan)
	return s.db.Close()
}

func (s *Store) CreateMailbox(info mailbox.Info) error {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO mailboxes (name, uid_validity) VALUES (?, ?)`,
			name, lib.NewUidValidity())
		if err != nil {
			return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		return nil
	})
}

func (s *Store) ListMailbox() ([]mailbox.Info, error) {
	rows, err := s.db.Query(`SELECT id, name, uid_validity FROM mailboxes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	list := make([]mailbox.Info, 0)
	for rows.Next() {
		var id uint32
		info := mailbox.Info{Delimiter: Delimiter}
		if err = rows.Scan(&id, &info.Name, &info.UidValidity); err != nil {
			return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		info.ID = mailbox.NewIDFromUint(id)
		list = append(list, info)
	}
	return list, rows.Err()
}

func (s *Store) DeleteMailbox(info mailbox.Info) error {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	return s.withTx(func(tx *sql.Tx) error {
		mailboxID, err := s.mailboxID(tx, name)
		if errors.Is(err, lib.ErrMailboxNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err = tx.Exec(`DELETE FROM messages WHERE mailbox_id = ?`, mailboxID); err != nil {
			return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		if _, err = tx.Exec(`DELETE FROM mailboxes WHERE id = ?`, mailboxID); err != nil {
			return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		return nil
	})
}

func (s *Store) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	row := s.db.QueryRow(
		`SELECT id, uid_validity, last_uid, highest_modseq FROM mailboxes WHERE name = ?`, name)
	var mailboxID int64
	status := &mailbox.Status{Name: name}
	var lastUid uint64
	err := row.Scan(&mailboxID, &status.UidValidity, &lastUid, &status.HighestModSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lib.ErrMailboxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	status.UidNext = lastUid + 1

	row = s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(1 - seen), 0), COALESCE(SUM(recent), 0) FROM messages WHERE mailbox_id = ?`,
		mailboxID)
	if err = row.Scan(&status.Messages, &status.Unseen, &status.Recent); err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return status, nil
}

func (s *Store) Add(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (*mailbox.Message, error) {
	content, err := mailbox.ReadContent(props, body)
	if err != nil {
		return nil, err
	}
	var message *mailbox.Message
	err = s.withTx(func(tx *sql.Tx) error {
		mailboxID, err := s.mailboxIDFromInfo(tx, info)
		if err != nil {
			return err
		}
		uid, err := allocCounter(tx, mailboxID, "last_uid")
		if err != nil {
			return err
		}
		modSeq, err := allocCounter(tx, mailboxID, "highest_modseq")
		if err != nil {
			return err
		}
		flags := mailbox.NormalizeFlags(props.Flags)
		if err = s.insertMessage(tx, mailboxID, uid, modSeq, flags, props, content); err != nil {
			return err
		}
		s.log.Printf("Message saved: mailbox=%q uid=%d size=%d flags=%v", info.Name, uid, len(content), flags)
		message = exportMessage(uid, modSeq, flags, props.InternalDate, props.BodyStart, content, mailbox.FetchFull)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (s *Store) Delete(info mailbox.Info, uid uint64) error {
	return s.withTx(func(tx *sql.Tx) error {
		mailboxID, err := s.mailboxIDFromInfo(tx, info)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`DELETE FROM messages WHERE mailbox_id = ? AND uid = ?`, mailboxID, uid)
		if err != nil {
			return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		return nil
	})
}

func (s *Store) Copy(info mailbox.Info, msg *mailbox.Message) (*mailbox.Message, error) {
	content := msg.Content()
	if msg.Size > 0 && len(content) == 0 {
		return nil, fmt.Errorf("%w: message content not loaded", lib.ErrInvalidArgument)
	}
	var message *mailbox.Message
	err := s.withTx(func(tx *sql.Tx) error {
		mailboxID, err := s.mailboxIDFromInfo(tx, info)
		if err != nil {
			return err
		}
		uid, err := allocCounter(tx, mailboxID, "last_uid")
		if err != nil {
			return err
		}
		modSeq, err := allocCounter(tx, mailboxID, "highest_modseq")
		if err != nil {
			return err
		}
		flags := mailbox.NormalizeFlags(lib.WithRecentFlag(msg.Flags))
		props := mailbox.MessageProperties{
			Flags:        flags,
			InternalDate: msg.InternalDate,
			Size:         uint32(len(content)),
			BodyStart:    msg.BodyStart,
		}
		if err = s.insertMessage(tx, mailboxID, uid, modSeq, flags, props, content); err != nil {
			return err
		}
		message = exportMessage(uid, modSeq, flags, msg.InternalDate, msg.BodyStart, content, mailbox.FetchFull)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (s *Store) FindInMailbox(info mailbox.Info, rng mailbox.Range, fetch mailbox.FetchType, limit int) ([]*mailbox.Message, error) {
	mailboxID, err := s.readMailboxID(info)
	if err != nil {
		return nil, err
	}
	sqlLimit := limit
	if sqlLimit <= 0 {
		sqlLimit = -1
	}
	query := `SELECT uid, modseq, flags, internal_date, body_start, content
		FROM messages
		WHERE mailbox_id = ? AND uid >= ? AND (? = 0 OR uid <= ?)
		ORDER BY uid LIMIT ?`
	rows, err := s.db.Query(query, mailboxID, rng.First(), rng.Last(), rng.Last(), sqlLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	messages := make([]*mailbox.Message, 0)
	for rows.Next() {
		var (
			uid, modSeq uint64
			rawFlags    string
			date        int64
			bodyStart   uint32
			content     []byte
		)
		if err = rows.Scan(&uid, &modSeq, &rawFlags, &date, &bodyStart, &content); err != nil {
			return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		flags, err := decodeFlags(rawFlags)
		if err != nil {
			return nil, err
		}
		messages = append(messages, exportMessage(uid, modSeq, flags, time.Unix(0, date).UTC(), bodyStart, content, fetch))
	}
	return messages, rows.Err()
}

func (s *Store) CountMessages(info mailbox.Info) (uint32, error) {
	return s.countWhere(info, "")
}

func (s *Store) CountUnseen(info mailbox.Info) (uint32, error) {
	return s.countWhere(info, "AND seen = 0")
}

func (s *Store) FindRecentUids(info mailbox.Info) ([]uint64, error) {
	mailboxID, err := s.readMailboxID(info)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT uid FROM messages WHERE mailbox_id = ? AND recent = 1 ORDER BY uid`, mailboxID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	uids := make([]uint64, 0)
	for rows.Next() {
		var uid uint64
		if err = rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

func (s *Store) FirstUnseenUid(info mailbox.Info) (uint64, bool, error) {
	mailboxID, err := s.readMailboxID(info)
	if err != nil {
		return 0, false, err
	}
	row := s.db.QueryRow(
		`SELECT uid FROM messages WHERE mailbox_id = ? AND seen = 0 ORDER BY uid LIMIT 1`, mailboxID)
	var uid uint64
	err = row.Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return uid, true, nil
}

func (s *Store) UpdateFlags(info mailbox.Info, flags []string, value bool, replace bool, rng mailbox.Range) ([]mailbox.UpdatedFlags, error) {
	updated := make([]mailbox.UpdatedFlags, 0)
	err := s.withTx(func(tx *sql.Tx) error {
		mailboxID, err := s.mailboxIDFromInfo(tx, info)
		if err != nil {
			return err
		}
		rows, err := tx.Query(
			`SELECT uid, flags FROM messages
			WHERE mailbox_id = ? AND uid >= ? AND (? = 0 OR uid <= ?)
			ORDER BY uid`,
			mailboxID, rng.First(), rng.Last(), rng.Last())
		if err != nil {
			return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		type pending struct {
			uid    uint64
			before []string
		}
		affected := make([]pending, 0)
		for rows.Next() {
			var (
				uid      uint64
				rawFlags string
			)
			if err = rows.Scan(&uid, &rawFlags); err != nil {
				_ = rows.Close()
				return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
			}
			before, err := decodeFlags(rawFlags)
			if err != nil {
				_ = rows.Close()
				return err
			}
			affected = append(affected, pending{uid: uid, before: before})
		}
		if err = rows.Close(); err != nil {
			return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		if len(affected) == 0 {
			return nil
		}
		// one mod-seq for the whole batch
		modSeq, err := allocCounter(tx, mailboxID, "highest_modseq")
		if err != nil {
			return err
		}
		for _, entry := range affected {
			after := applyFlags(entry.before, flags, value, replace)
			rawFlags, err := encodeFlags(after)
			if err != nil {
				return err
			}
			_, err = tx.Exec(
				`UPDATE messages SET flags = ?, seen = ?, recent = ?, deleted = ?, modseq = ?
				WHERE mailbox_id = ? AND uid = ?`,
				rawFlags, boolToInt(mailbox.HasFlag(after, imap.SeenFlag)),
				boolToInt(mailbox.HasFlag(after, imap.RecentFlag)),
				boolToInt(mailbox.HasFlag(after, imap.DeletedFlag)),
				modSeq, mailboxID, entry.uid)
			if err != nil {
				return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
			}
			updated = append(updated, mailbox.UpdatedFlags{
				Uid:    entry.uid,
				ModSeq: modSeq,
				Before: entry.before,
				After:  after,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Expunge(info mailbox.Info, rng mailbox.Range) (map[uint64]mailbox.Metadata, error) {
	expunged := make(map[uint64]mailbox.Metadata)
	err := s.withTx(func(tx *sql.Tx) error {
		mailboxID, err := s.mailboxIDFromInfo(tx, info)
		if err != nil {
			return err
		}
		rows, err := tx.Query(
			`SELECT uid, modseq, flags, internal_date, size, body_start FROM messages
			WHERE mailbox_id = ? AND deleted = 1 AND uid >= ? AND (? = 0 OR uid <= ?)`,
			mailboxID, rng.First(), rng.Last(), rng.Last())
		if err != nil {
			return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		for rows.Next() {
			var (
				metadata mailbox.Metadata
				rawFlags string
				date     int64
			)
			if err = rows.Scan(&metadata.Uid, &metadata.ModSeq, &rawFlags, &date, &metadata.Size, &metadata.BodyStart); err != nil {
				_ = rows.Close()
				return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
			}
			metadata.Flags, err = decodeFlags(rawFlags)
			if err != nil {
				_ = rows.Close()
				return err
			}
			metadata.InternalDate = time.Unix(0, date).UTC()
			expunged[metadata.Uid] = metadata
		}
		if err = rows.Close(); err != nil {
			return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
		}
		if len(expunged) == 0 {
			return nil
		}
		for uid := range expunged {
			if _, err = tx.Exec(`DELETE FROM messages WHERE mailbox_id = ? AND uid = ?`, mailboxID, uid); err != nil {
				return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
			}
		}
		_, err = allocCounter(tx, mailboxID, "highest_modseq")
		return err
	})
	if err != nil {
		return nil, err
	}
	return expunged, nil
}

func (s *Store) LastUid(info mailbox.Info) (uint64, error) {
	return s.uids.LastUid(info)
}

func (s *Store) HighestModSeq(info mailbox.Info) (uint64, error) {
	return s.modSeqs.HighestModSeq(info)
}

func (s *Store) insertMessage(tx *sql.Tx, mailboxID int64, uid, modSeq uint64, flags []string, props mailbox.MessageProperties, content []byte) error {
	rawFlags, err := encodeFlags(flags)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO messages (mailbox_id, uid, modseq, flags, seen, recent, deleted, internal_date, size, body_start, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mailboxID, uid, modSeq, rawFlags,
		boolToInt(mailbox.HasFlag(flags, imap.SeenFlag)),
		boolToInt(mailbox.HasFlag(flags, imap.RecentFlag)),
		boolToInt(mailbox.HasFlag(flags, imap.DeletedFlag)),
		props.InternalDate.UnixNano(), len(content), props.BodyStart, content)
	if err != nil {
		return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) countWhere(info mailbox.Info, condition string) (uint32, error) {
	mailboxID, err := s.readMailboxID(info)
	if err != nil {
		return 0, err
	}
	row := s.db.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE mailbox_id = ? `+condition, mailboxID)
	var count uint32
	if err = row.Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return count, nil
}

// mailboxID resolves a normalized mailbox name inside a transaction.
func (s *Store) mailboxID(tx *sql.Tx, name string) (int64, error) {
	row := tx.QueryRow(`SELECT id FROM mailboxes WHERE name = ?`, name)
	var id int64
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, lib.ErrMailboxNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return id, nil
}

func (s *Store) mailboxIDFromInfo(tx *sql.Tx, info mailbox.Info) (int64, error) {
	return s.mailboxID(tx, lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter))
}

// readMailboxID resolves a mailbox name outside any transaction.
func (s *Store) readMailboxID(info mailbox.Info) (int64, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	row := s.db.QueryRow(`SELECT id FROM mailboxes WHERE name = ?`, name)
	var id int64
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, lib.ErrMailboxNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return id, nil
}

// allocCounter bumps one of the two per-mailbox counters and returns the new
// value. Always runs inside the single writer transaction.
func allocCounter(tx *sql.Tx, mailboxID int64, column string) (uint64, error) {
	_, err := tx.Exec(
		`UPDATE mailboxes SET `+column+` = `+column+` + 1 WHERE id = ?`, mailboxID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	row := tx.QueryRow(`SELECT `+column+` FROM mailboxes WHERE id = ?`, mailboxID)
	var value uint64
	if err = row.Scan(&value); err != nil {
		return 0, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return value, nil
}

func encodeFlags(flags []string) (string, error) {
	if flags == nil {
		flags = []string{}
	}
	data, err := json.Marshal(flags)
	if err != nil {
		return "", fmt.Errorf("cannot encode flags: %w", err)
	}
	return string(data), nil
}

func decodeFlags(raw string) ([]string, error) {
	flags := make([]string, 0)
	if err := json.Unmarshal([]byte(raw), &flags); err != nil {
		return nil, fmt.Errorf("cannot decode flags: %w", err)
	}
	return flags, nil
}

func exportMessage(uid, modSeq uint64, flags []string, date time.Time, bodyStart uint32, content []byte, fetch mailbox.FetchType) *mailbox.Message {
	message := &mailbox.Message{
		MessageProperties: mailbox.MessageProperties{
			Flags:        flags,
			InternalDate: date,
			Size:         uint32(len(content)),
			BodyStart:    bodyStart,
		},
		Uid:    uid,
		ModSeq: modSeq,
	}
	if fetch == mailbox.FetchMetadata {
		return message
	}
	headers, body := mailbox.SplitContent(content, bodyStart)
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

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
