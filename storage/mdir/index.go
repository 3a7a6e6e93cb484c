package mdir

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/creativeprojects/mailstore/lib"
)

// indexEntry describes one message. The index is the authority for UIDs,
// flags and mod-sequences; the maildir file only holds the content.
type indexEntry struct {
	Key          string    `json:"key"`
	Flags        []string  `json:"flags"`
	InternalDate time.Time `json:"date"`
	Size         uint32    `json:"size"`
	BodyStart    uint32    `json:"bodyStart"`
	ModSeq       uint64    `json:"modseq"`
}

type mailboxIndex struct {
	UidValidity   uint32                `json:"uidValidity"`
	LastUid       uint64                `json:"lastUid"`
	HighestModSeq uint64                `json:"highestModseq"`
	Messages      map[uint64]indexEntry `json:"messages"`
}

func newMailboxIndex() *mailboxIndex {
	return &mailboxIndex{
		UidValidity: lib.NewUidValidity(),
		Messages:    make(map[uint64]indexEntry),
	}
}

func (idx *mailboxIndex) nextUid() uint64 {
	idx.LastUid++
	return idx.LastUid
}

func (idx *mailboxIndex) nextModSeq() uint64 {
	idx.HighestModSeq++
	return idx.HighestModSeq
}

func (idx *mailboxIndex) sortedUids() []uint64 {
	uids := make([]uint64, 0, len(idx.Messages))
	for uid := range idx.Messages {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}

func loadIndex(filename string) (*mailboxIndex, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrMailboxNotFound, err)
	}
	defer file.Close()

	index := &mailboxIndex{}
	decoder := json.NewDecoder(file)
	if err = decoder.Decode(index); err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	if index.Messages == nil {
		index.Messages = make(map[uint64]indexEntry)
	}
	return index, nil
}

// saveIndex writes to a temporary file then renames it in place, so a crash
// mid-write never leaves a truncated index behind.
func saveIndex(filename string, index *mailboxIndex) error {
	tempName := filename + ".tmp"
	file, err := os.Create(tempName)
	if err != nil {
		return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	encoder := json.NewEncoder(file)
	if err = encoder.Encode(index); err != nil {
		_ = file.Close()
		_ = os.Remove(tempName)
		return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	if err = file.Close(); err != nil {
		_ = os.Remove(tempName)
		return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	if err = os.Rename(tempName, filename); err != nil {
		return fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return nil
}
