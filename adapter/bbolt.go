package adapter

import (
	"context"

	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("flagcore_cache")

// BoltAdapter is a file-backed DataAdapter: a durable local cache of
// the last-seen rulesets/ID-lists payload, one bucket holding all
// keys. Useful for a single-process deployment that wants to survive
// a restart without waiting on a fresh network sync.
type BoltAdapter struct {
	db *bolt.DB
}

// OpenBoltAdapter opens (creating if absent) a bbolt database at path
// and ensures the cache bucket exists.
func OpenBoltAdapter(path string) (*BoltAdapter, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltAdapter{db: db}, nil
}

func (a *BoltAdapter) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	var found bool
	err := a.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(cacheBucket).Get([]byte(key))
		if v != nil {
			found = true
			value = string(v)
		}
		return nil
	})
	return value, found, err
}

func (a *BoltAdapter) Set(_ context.Context, key string, value string) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(key), []byte(value))
	})
}

func (a *BoltAdapter) Initialize(context.Context) error { return nil }

func (a *BoltAdapter) Shutdown(context.Context) error {
	return a.db.Close()
}

func (a *BoltAdapter) SupportsPollingUpdatesFor(string) bool { return false }
