package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// BadgerStore implements KV using BadgerDB, with a prefix+direction
// iterator for paged range scans.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if necessary) a BadgerDB at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger db at %q: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(_ context.Context, key []byte) ([]byte, error) {
	var valCopy []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			valCopy = append([]byte{}, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	return valCopy, err
}

func (s *BadgerStore) Set(_ context.Context, key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Iterate walks all keys with the given prefix, in ascending order unless
// reverse is set, invoking fn for each. fn returns (stop, err); iteration
// halts as soon as stop is true or err is non-nil.
func (s *BadgerStore) Iterate(_ context.Context, prefix []byte, reverse bool, fn func(key, value []byte) (bool, error)) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = reverse

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if reverse {
			seek = upperBound(prefix)
		}

		var fnErr error
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				key := item.KeyCopy(nil)
				valCopy := append([]byte{}, val...)
				stop, err := fn(key, valCopy)
				if err != nil {
					return err
				}
				if stop {
					return errStopIteration
				}
				return nil
			})
			if err == errStopIteration {
				break
			}
			if err != nil {
				fnErr = err
				break
			}
		}
		return fnErr
	})
}

// upperBound returns the smallest key greater than every key sharing
// prefix, used to seek a badger reverse iterator to the last matching key.
func upperBound(prefix []byte) []byte {
	bound := append([]byte{}, prefix...)
	for i := len(bound) - 1; i >= 0; i-- {
		if bound[i] != 0xff {
			bound[i]++
			return bound[:i+1]
		}
	}
	// prefix is all 0xff bytes: no finite upper bound, seek past any
	// realistic key by padding.
	return append(bound, 0xff)
}

var errStopIteration = fmt.Errorf("store: iteration stopped")

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
