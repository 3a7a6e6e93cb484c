package local

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/emersion/go-imap"
	bolt "go.etcd.io/bbolt"
)

const Delimiter = "."

const (
	metadataBucket  = "metadata"
	mailboxBucket   = "mailbox"
	infoKey         = "info"
	lastUidKey      = "lastuid"
	modSeqKey       = "modseq"
	bodyPrefix      = "body-"
	msgPrefix       = "msg-"
	versionKey      = "version"
	boltFileVersion = 2
)

// msgProps is the per-message metadata record; the raw content is stored
// separately, zlib compressed.
type msgProps struct {
	Flags     []string
	Date      time.Time
	Size      uint32
	BodyStart uint32
	ModSeq    uint64
}

// BoltStore keeps each mailbox in its own nested bucket. Every mutating
// operation runs in a single write transaction, so range updates are atomic
// as a whole.
type BoltStore struct {
	dbFile  string
	db      *bolt.DB
	log     lib.Logger
	uids    *UidProvider
	modSeqs *ModSeqProvider
}

func NewBoltStore(filename string) (*BoltStore, error) {
	return NewBoltStoreWithLogger(filename, nil)
}

func NewBoltStoreWithLogger(filename string, logger lib.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = &lib.NoLog{}
	}
	options := bolt.DefaultOptions
	options.Timeout = 10 * time.Second

	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", filename, err)
	}

	db, err := bolt.Open(filename, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}

	store := &BoltStore{
		dbFile: filename,
		db:     db,
		log:    logger,
	}
	store.uids = &UidProvider{store: store}
	store.modSeqs = &ModSeqProvider{store: store}
	return store, nil
}

func (s *BoltStore) DebugLogger(logger lib.Logger) {
	s.log = logger
}

func (s *BoltStore) Uids() *UidProvider {
	return s.uids
}

func (s *BoltStore) ModSeqs() *ModSeqProvider {
	return s.modSeqs
}

func (s *BoltStore) Delimiter() string {
	return Delimiter
}

func (s *BoltStore) Transactional() bool {
	return true
}

func (s *BoltStore) Exists() bool {
	_, err := os.Stat(s.dbFile)
	return err == nil
}

func (s *BoltStore) Init() error {
	return s.update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		version, err := SerializeInt(boltFileVersion)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(versionKey), version)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Backup(filename string) error {
	return s.view(func(tx *bolt.Tx) error {
		return tx.CopyFile(filename, 0644)
	})
}

func (s *BoltStore) CreateMailbox(info mailbox.Info) error {
	return s.update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(mailboxBucket))
		if err != nil {
			return err
		}

		info = mailbox.ChangeDelimiter(info, s.Delimiter())

		bucket, err := root.CreateBucket([]byte(info.Name))
		if err != nil {
			if errors.Is(err, bolt.ErrBucketExists) {
				// don't return an error when the bucket exists
				return nil
			}
			return err
		}

		// the bucket sequence provides the mailbox index
		index, err := root.NextSequence()
		if err != nil {
			return err
		}
		info.ID = mailbox.NewIDFromUint(uint32(index))
		info.UidValidity = lib.NewUidValidity()

		if err = setMailboxInfo(bucket, info); err != nil {
			return err
		}
		if err = setCounter(bucket, lastUidKey, 0); err != nil {
			return err
		}
		return setCounter(bucket, modSeqKey, 0)
	})
}

func (s *BoltStore) ListMailbox() ([]mailbox.Info, error) {
	list := make([]mailbox.Info, 0)
	err := s.view(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(mailboxBucket))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			// if there's a value it's not a bucket
			if v != nil {
				return nil
			}
			entry := bucket.Bucket(k)
			if entry == nil {
				return nil
			}
			info, err := getMailboxInfo(entry)
			if err != nil {
				return err
			}
			list = append(list, *info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *BoltStore) DeleteMailbox(info mailbox.Info) error {
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(mailboxBucket))
		if bucket == nil {
			return nil
		}
		name := lib.VerifyDelimiter(info.Name, info.Delimiter, s.Delimiter())
		err := bucket.DeleteBucket([]byte(name))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

func (s *BoltStore) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	var status *mailbox.Status
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		stored, err := getMailboxInfo(bucket)
		if err != nil {
			return err
		}
		lastUid, err := getCounter(bucket, lastUidKey)
		if err != nil {
			return err
		}
		modSeq, err := getCounter(bucket, modSeqKey)
		if err != nil {
			return err
		}
		status = &mailbox.Status{
			Name:          stored.Name,
			UidValidity:   stored.UidValidity,
			UidNext:       lastUid + 1,
			HighestModSeq: modSeq,
		}
		return forEachMessage(bucket, mailbox.All(), func(uid uint64, props *msgProps) error {
			status.Messages++
			if !mailbox.HasFlag(props.Flags, imap.SeenFlag) {
				status.Unseen++
			}
			if mailbox.HasFlag(props.Flags, imap.RecentFlag) {
				status.Recent++
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (s *BoltStore) Add(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (*mailbox.Message, error) {
	content, err := mailbox.ReadContent(props, body)
	if err != nil {
		return nil, err
	}
	var message *mailbox.Message
	err = s.update(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		uid, err := nextCounter(bucket, lastUidKey)
		if err != nil {
			return fmt.Errorf("cannot allocate message uid: %w", err)
		}
		modSeq, err := nextCounter(bucket, modSeqKey)
		if err != nil {
			return fmt.Errorf("cannot allocate mod-seq: %w", err)
		}
		record := &msgProps{
			Flags:     mailbox.NormalizeFlags(props.Flags),
			Date:      props.InternalDate,
			Size:      uint32(len(content)),
			BodyStart: props.BodyStart,
			ModSeq:    modSeq,
		}
		if err = putMessage(bucket, uid, record, content); err != nil {
			return err
		}
		s.log.Printf("Message saved: mailbox=%q uid=%d size=%d flags=%v", info.Name, uid, len(content), record.Flags)
		message = record.export(uid, content, mailbox.FetchFull)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (s *BoltStore) Delete(info mailbox.Info, uid uint64) error {
	return s.update(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		if err = bucket.Delete(SerializeUid(msgPrefix, uid)); err != nil {
			return err
		}
		return bucket.Delete(SerializeUid(bodyPrefix, uid))
	})
}

func (s *BoltStore) Copy(info mailbox.Info, msg *mailbox.Message) (*mailbox.Message, error) {
	content := msg.Content()
	if msg.Size > 0 && len(content) == 0 {
		return nil, fmt.Errorf("%w: message content not loaded", lib.ErrInvalidArgument)
	}
	var message *mailbox.Message
	err := s.update(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		uid, err := nextCounter(bucket, lastUidKey)
		if err != nil {
			return err
		}
		modSeq, err := nextCounter(bucket, modSeqKey)
		if err != nil {
			return err
		}
		record := &msgProps{
			Flags:     mailbox.NormalizeFlags(lib.WithRecentFlag(msg.Flags)),
			Date:      msg.InternalDate,
			Size:      uint32(len(content)),
			BodyStart: msg.BodyStart,
			ModSeq:    modSeq,
		}
		if err = putMessage(bucket, uid, record, content); err != nil {
			return err
		}
		message = record.export(uid, content, mailbox.FetchFull)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (s *BoltStore) FindInMailbox(info mailbox.Info, rng mailbox.Range, fetch mailbox.FetchType, limit int) ([]*mailbox.Message, error) {
	messages := make([]*mailbox.Message, 0)
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		return forEachMessage(bucket, rng, func(uid uint64, props *msgProps) error {
			var content []byte
			if fetch != mailbox.FetchMetadata {
				content, err = getContent(bucket, uid)
				if err != nil {
					return err
				}
			}
			messages = append(messages, props.export(uid, content, fetch))
			if limit > 0 && len(messages) >= limit {
				return errStopIteration
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *BoltStore) CountMessages(info mailbox.Info) (uint32, error) {
	count := uint32(0)
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		return forEachMessage(bucket, mailbox.All(), func(uid uint64, props *msgProps) error {
			count++
			return nil
		})
	})
	return count, err
}

func (s *BoltStore) CountUnseen(info mailbox.Info) (uint32, error) {
	count := uint32(0)
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		return forEachMessage(bucket, mailbox.All(), func(uid uint64, props *msgProps) error {
			if !mailbox.HasFlag(props.Flags, imap.SeenFlag) {
				count++
			}
			return nil
		})
	})
	return count, err
}

func (s *BoltStore) FindRecentUids(info mailbox.Info) ([]uint64, error) {
	uids := make([]uint64, 0)
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		return forEachMessage(bucket, mailbox.All(), func(uid uint64, props *msgProps) error {
			if mailbox.HasFlag(props.Flags, imap.RecentFlag) {
				uids = append(uids, uid)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return uids, nil
}

func (s *BoltStore) FirstUnseenUid(info mailbox.Info) (uint64, bool, error) {
	var first uint64
	found := false
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		return forEachMessage(bucket, mailbox.All(), func(uid uint64, props *msgProps) error {
			if !mailbox.HasFlag(props.Flags, imap.SeenFlag) {
				first = uid
				found = true
				return errStopIteration
			}
			return nil
		})
	})
	if err != nil {
		return 0, false, err
	}
	return first, found, nil
}

func (s *BoltStore) UpdateFlags(info mailbox.Info, flags []string, value bool, replace bool, rng mailbox.Range) ([]mailbox.UpdatedFlags, error) {
	updated := make([]mailbox.UpdatedFlags, 0)
	err := s.update(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		type pending struct {
			uid   uint64
			props *msgProps
		}
		affected := make([]pending, 0)
		err = forEachMessage(bucket, rng, func(uid uint64, props *msgProps) error {
			affected = append(affected, pending{uid: uid, props: props})
			return nil
		})
		if err != nil {
			return err
		}
		if len(affected) == 0 {
			return nil
		}
		// one mod-seq for the whole batch
		modSeq, err := nextCounter(bucket, modSeqKey)
		if err != nil {
			return err
		}
		for _, entry := range affected {
			before := entry.props.Flags
			after := applyFlags(before, flags, value, replace)
			entry.props.Flags = after
			entry.props.ModSeq = modSeq
			data, err := SerializeObject(entry.props)
			if err != nil {
				return err
			}
			if err = bucket.Put(SerializeUid(msgPrefix, entry.uid), data); err != nil {
				return err
			}
			updated = append(updated, mailbox.UpdatedFlags{
				Uid:    entry.uid,
				ModSeq: modSeq,
				Before: before,
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

func (s *BoltStore) Expunge(info mailbox.Info, rng mailbox.Range) (map[uint64]mailbox.Metadata, error) {
	expunged := make(map[uint64]mailbox.Metadata)
	err := s.update(func(tx *bolt.Tx) error {
		bucket, err := s.mailbox(tx, info)
		if err != nil {
			return err
		}
		removable := make([]uint64, 0)
		err = forEachMessage(bucket, rng, func(uid uint64, props *msgProps) error {
			if mailbox.HasFlag(props.Flags, imap.DeletedFlag) {
				expunged[uid] = props.metadata(uid)
				removable = append(removable, uid)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, uid := range removable {
			if err = bucket.Delete(SerializeUid(msgPrefix, uid)); err != nil {
				return err
			}
			if err = bucket.Delete(SerializeUid(bodyPrefix, uid)); err != nil {
				return err
			}
		}
		if len(removable) > 0 {
			if _, err = nextCounter(bucket, modSeqKey); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expunged, nil
}

func (s *BoltStore) LastUid(info mailbox.Info) (uint64, error) {
	return s.uids.LastUid(info)
}

func (s *BoltStore) HighestModSeq(info mailbox.Info) (uint64, error) {
	return s.modSeqs.HighestModSeq(info)
}

// errStopIteration stops forEachMessage early, it is never returned to the
// caller.
var errStopIteration = errors.New("stop iteration")

func (s *BoltStore) mailbox(tx *bolt.Tx, info mailbox.Info) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(mailboxBucket))
	if bucket == nil {
		return nil, lib.ErrMailboxNotFound
	}
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, s.Delimiter())
	mbox := bucket.Bucket([]byte(name))
	if mbox == nil {
		return nil, lib.ErrMailboxNotFound
	}
	return mbox, nil
}

func (s *BoltStore) update(fn func(tx *bolt.Tx) error) error {
	err := s.db.Update(fn)
	return wrapStorageError(err)
}

func (s *BoltStore) view(fn func(tx *bolt.Tx) error) error {
	err := s.db.View(fn)
	return wrapStorageError(err)
}

// wrapStorageError tags database-level failures as storage-unavailable,
// leaving the logical errors untouched.
func wrapStorageError(err error) error {
	if err == nil ||
		errors.Is(err, lib.ErrMailboxNotFound) ||
		errors.Is(err, lib.ErrMailboxExists) ||
		errors.Is(err, lib.ErrInvalidArgument) ||
		errors.Is(err, lib.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
}

// forEachMessage iterates the message records of a mailbox bucket in
// ascending UID order, skipping the UIDs within the range bounds that no
// longer exist.
func forEachMessage(bucket *bolt.Bucket, rng mailbox.Range, fn func(uid uint64, props *msgProps) error) error {
	cursor := bucket.Cursor()
	start := SerializeUid(msgPrefix, rng.First())
	for key, value := cursor.Seek(start); key != nil && bytes.HasPrefix(key, []byte(msgPrefix)); key, value = cursor.Next() {
		uid := DeserializeUid(msgPrefix, key)
		if !rng.Contains(uid) {
			if rng.Last() > 0 && uid > rng.Last() {
				break
			}
			continue
		}
		props, err := DeserializeObject[msgProps](value)
		if err != nil {
			return err
		}
		err = fn(uid, props)
		if errors.Is(err, errStopIteration) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func putMessage(bucket *bolt.Bucket, uid uint64, props *msgProps, content []byte) error {
	data, err := SerializeObject(props)
	if err != nil {
		return err
	}
	if err = bucket.Put(SerializeUid(msgPrefix, uid), data); err != nil {
		return fmt.Errorf("cannot save message properties: %w", err)
	}
	buffer := &bytes.Buffer{}
	writer := zlib.NewWriter(buffer)
	if _, err = writer.Write(content); err != nil {
		return fmt.Errorf("cannot compress message body: %w", err)
	}
	if err = writer.Close(); err != nil {
		return fmt.Errorf("error closing zlib writer: %w", err)
	}
	if err = bucket.Put(SerializeUid(bodyPrefix, uid), buffer.Bytes()); err != nil {
		return fmt.Errorf("cannot save message body: %w", err)
	}
	return nil
}

func getContent(bucket *bolt.Bucket, uid uint64) ([]byte, error) {
	data := bucket.Get(SerializeUid(bodyPrefix, uid))
	if data == nil {
		return nil, nil
	}
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	content := &bytes.Buffer{}
	if _, err = content.ReadFrom(reader); err != nil {
		return nil, err
	}
	return content.Bytes(), nil
}

func setMailboxInfo(bucket *bolt.Bucket, info mailbox.Info) error {
	data, err := SerializeObject(&info)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(infoKey), data)
}

func getMailboxInfo(bucket *bolt.Bucket) (*mailbox.Info, error) {
	data := bucket.Get([]byte(infoKey))
	if data == nil {
		return nil, lib.ErrMailboxNotFound
	}
	return DeserializeObject[mailbox.Info](data)
}

func (p *msgProps) export(uid uint64, content []byte, fetch mailbox.FetchType) *mailbox.Message {
	message := &mailbox.Message{
		MessageProperties: mailbox.MessageProperties{
			Flags:        append([]string(nil), p.Flags...),
			InternalDate: p.Date,
			Size:         p.Size,
			BodyStart:    p.BodyStart,
		},
		Uid:    uid,
		ModSeq: p.ModSeq,
	}
	if fetch == mailbox.FetchMetadata {
		return message
	}
	headers, body := mailbox.SplitContent(content, p.BodyStart)
	message.Headers = append([]byte(nil), headers...)
	if fetch != mailbox.FetchHeaders {
		message.Body = append([]byte(nil), body...)
	}
	return message
}

func (p *msgProps) metadata(uid uint64) mailbox.Metadata {
	return mailbox.Metadata{
		Uid:          uid,
		ModSeq:       p.ModSeq,
		Flags:        append([]string(nil), p.Flags...),
		InternalDate: p.Date,
		Size:         p.Size,
		BodyStart:    p.BodyStart,
	}
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
