package local

import (
	"github.com/creativeprojects/mailstore/mailbox"
	bolt "go.etcd.io/bbolt"
)

// counter access, shared between the providers and the mapper operations
// that allocate inside their own transaction.

func getCounter(bucket *bolt.Bucket, key string) (uint64, error) {
	data := bucket.Get([]byte(key))
	if data == nil {
		return 0, nil
	}
	value, err := DeserializeObject[uint64](data)
	if err != nil {
		return 0, err
	}
	return *value, nil
}

func setCounter(bucket *bolt.Bucket, key string, value uint64) error {
	data, err := SerializeObject(&value)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(key), data)
}

func nextCounter(bucket *bolt.Bucket, key string) (uint64, error) {
	value, err := getCounter(bucket, key)
	if err != nil {
		return 0, err
	}
	value++
	if err = setCounter(bucket, key, value); err != nil {
		return 0, err
	}
	return value, nil
}

// UidProvider allocates message UIDs inside a write transaction, so two
// concurrent allocations can never yield the same value.
type UidProvider struct {
	store *BoltStore
}

func (p *UidProvider) NextUid(info mailbox.Info) (uint64, error) {
	var uid uint64
	err := p.store.update(func(tx *bolt.Tx) error {
		bucket, err := p.store.mailbox(tx, info)
		if err != nil {
			return err
		}
		uid, err = nextCounter(bucket, lastUidKey)
		return err
	})
	return uid, err
}

func (p *UidProvider) LastUid(info mailbox.Info) (uint64, error) {
	var uid uint64
	err := p.store.view(func(tx *bolt.Tx) error {
		bucket, err := p.store.mailbox(tx, info)
		if err != nil {
			return err
		}
		uid, err = getCounter(bucket, lastUidKey)
		return err
	})
	return uid, err
}

type ModSeqProvider struct {
	store *BoltStore
}

func (p *ModSeqProvider) NextModSeq(info mailbox.Info) (uint64, error) {
	var modSeq uint64
	err := p.store.update(func(tx *bolt.Tx) error {
		bucket, err := p.store.mailbox(tx, info)
		if err != nil {
			return err
		}
		modSeq, err = nextCounter(bucket, modSeqKey)
		return err
	})
	return modSeq, err
}

func (p *ModSeqProvider) HighestModSeq(info mailbox.Info) (uint64, error) {
	var modSeq uint64
	err := p.store.view(func(tx *bolt.Tx) error {
		bucket, err := p.store.mailbox(tx, info)
		if err != nil {
			return err
		}
		modSeq, err = getCounter(bucket, modSeqKey)
		return err
	})
	return modSeq, err
}
