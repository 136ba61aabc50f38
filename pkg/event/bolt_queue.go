package event

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("events")

// BoltQueue persists pending events in a bbolt file. Keys come from the
// bucket's monotonic sequence, so iteration order is insertion order and
// events queued before a crash are re-sent on the next run.
type BoltQueue struct {
	db *bolt.DB
}

// NewBoltQueue opens (or creates) the queue file at path.
func NewBoltQueue(path string) (*BoltQueue, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open event queue %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event queue %q: %w", path, err)
	}
	return &BoltQueue{db: db}, nil
}

// Add implements Queue.
func (q *BoltQueue) Add(event UserEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return bucket.Put(key[:], raw)
	})
}

// First implements Queue. Entries that fail to decode are skipped; Remove
// still counts them so the queue cannot wedge on a corrupt record.
func (q *BoltQueue) First(n int) ([]UserEvent, error) {
	var out []UserEvent
	err := q.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(boltBucket).Cursor()
		for k, v := cursor.First(); k != nil && len(out) < n; k, v = cursor.Next() {
			var event UserEvent
			if err := json.Unmarshal(v, &event); err != nil {
				continue
			}
			out = append(out, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove implements Queue.
func (q *BoltQueue) Remove(n int) error {
	return q.db.Update(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(boltBucket).Cursor()
		removed := 0
		for k, _ := cursor.First(); k != nil && removed < n; k, _ = cursor.Next() {
			if err := cursor.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
}

// Size implements Queue.
func (q *BoltQueue) Size() (int, error) {
	size := 0
	err := q.db.View(func(tx *bolt.Tx) error {
		size = tx.Bucket(boltBucket).Stats().KeyN
		return nil
	})
	return size, err
}

// Close implements Queue.
func (q *BoltQueue) Close() error {
	if err := q.db.Close(); err != nil && !errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return err
	}
	return nil
}
