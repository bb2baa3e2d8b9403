package coordinator

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

// offsetStore durably persists committed offsets keyed by
// (group, topic, partition) across coordinator restarts, backed by
// bbolt: one bucket per group, keys "topic\x00partition" -> int64 BE
// offset (spec §3's committed map, made durable per SPEC_FULL.md §3).
type offsetStore struct {
	db *bbolt.DB
}

func openOffsetStore(path string) (*offsetStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening offset store at %v: %w", path, err)
	}
	return &offsetStore{db: db}, nil
}

func (s *offsetStore) close() error {
	return s.db.Close()
}

func offsetKey(topic string, partition int32) []byte {
	k := make([]byte, len(topic)+1+4)
	copy(k, topic)
	binary.BigEndian.PutUint32(k[len(topic)+1:], uint32(partition))
	return k
}

func (s *offsetStore) commit(group, topic string, partition int32, offset int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(group))
		if err != nil {
			return err
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(offset))
		return b.Put(offsetKey(topic, partition), buf)
	})
}

// get returns the committed offset, or (0, false) if unset — callers
// treat "unset" as offset 0 (spec §4.5).
func (s *offsetStore) get(group, topic string, partition int32) (int64, bool) {
	var offset int64
	var found bool
	s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(group))
		if b == nil {
			return nil
		}
		v := b.Get(offsetKey(topic, partition))
		if v == nil {
			return nil
		}
		offset = int64(binary.BigEndian.Uint64(v))
		found = true
		return nil
	})
	return offset, found
}
