package adapter

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// BadgerAdapter is an embedded LSM-tree DataAdapter, an alternative to
// BoltAdapter for workloads with frequent small writes (e.g. ID-list
// deltas landing every sync interval).
type BadgerAdapter struct {
	db *badger.DB
}

// OpenBadgerAdapter opens a Badger database at path. Pass "" for
// path to run entirely in memory, useful for tests.
func OpenBadgerAdapter(path string) (*BadgerAdapter, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerAdapter{db: db}, nil
}

func (a *BadgerAdapter) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	var found bool
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			value = string(v)
			return nil
		})
	})
	return value, found, err
}

func (a *BadgerAdapter) Set(_ context.Context, key string, value string) error {
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

func (a *BadgerAdapter) Initialize(context.Context) error { return nil }

func (a *BadgerAdapter) Shutdown(context.Context) error {
	return a.db.Close()
}

func (a *BadgerAdapter) SupportsPollingUpdatesFor(string) bool { return false }
