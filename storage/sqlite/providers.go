package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
)

// UidProvider allocates message UIDs from the per-mailbox counter.
type UidProvider struct {
	store *Store
}

func (p *UidProvider) NextUid(info mailbox.Info) (uint64, error) {
	return p.store.allocate(info, "last_uid")
}

func (p *UidProvider) LastUid(info mailbox.Info) (uint64, error) {
	return p.store.counter(info, "last_uid")
}

// ModSeqProvider allocates modification sequences from the per-mailbox counter.
type ModSeqProvider struct {
	store *Store
}

func (p *ModSeqProvider) NextModSeq(info mailbox.Info) (uint64, error) {
	return p.store.allocate(info, "highest_modseq")
}

func (p *ModSeqProvider) HighestModSeq(info mailbox.Info) (uint64, error) {
	return p.store.counter(info, "highest_modseq")
}

func (s *Store) allocate(info mailbox.Info, column string) (uint64, error) {
	var value uint64
	err := s.withTx(func(tx *sql.Tx) error {
		mailboxID, err := s.mailboxIDFromInfo(tx, info)
		if err != nil {
			return err
		}
		value, err = allocCounter(tx, mailboxID, column)
		return err
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *Store) counter(info mailbox.Info, column string) (uint64, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	row := s.db.QueryRow(`SELECT `+column+` FROM mailboxes WHERE name = ?`, name)
	var value uint64
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, lib.ErrMailboxNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s", lib.ErrStorageUnavailable, err)
	}
	return value, nil
}
