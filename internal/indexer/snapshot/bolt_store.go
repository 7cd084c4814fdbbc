package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"

	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

const boltFile = "snapshots.bolt"

var snapshotBucket = []byte("snapshots")

// BoltStore keeps snapshots as values in a single bolt database.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) the bolt database in dir.
func OpenBoltStore(dir string) (*BoltStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	db, err := bolt.Open(filepath.Join(dir, boltFile), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Save(_ context.Context, name string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put([]byte(name), data)
	})
}

func (s *BoltStore) Load(_ context.Context, name string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(snapshotBucket).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("snapshot %q: %w", name, apperrors.ErrSnapshotNotFound)
		}
		// v is only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (s *BoltStore) Delete(_ context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotBucket).Delete([]byte(name))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
