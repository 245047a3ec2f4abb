package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore runs the workload against an embedded badger database
type BadgerStore struct {
	name string
	db   *badger.DB
}

// OpenBadger opens a badger database at path, or in memory when path is empty
func OpenBadger(name, path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}
	return &BadgerStore{name: name, db: db}, nil
}

func (b *BadgerStore) Name() string {
	return b.name
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// getTxn returns a copy of the value held by key, or nil
func getTxn(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (b *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		value, err = getTxn(txn, key)
		return err
	})
	return value, err
}

func (b *BadgerStore) Put(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *BadgerStore) PutIfAbsent(_ context.Context, key string, value []byte) ([]byte, error) {
	var prev []byte
	err := b.db.Update(func(txn *badger.Txn) error {
		var err error
		if prev, err = getTxn(txn, key); err != nil || prev != nil {
			return err
		}
		return txn.Set([]byte(key), value)
	})
	return prev, err
}

func (b *BadgerStore) Remove(_ context.Context, key string) (bool, error) {
	var removed bool
	err := b.db.Update(func(txn *badger.Txn) error {
		cur, err := getTxn(txn, key)
		if err != nil || cur == nil {
			return err
		}
		removed = true
		return txn.Delete([]byte(key))
	})
	return removed, err
}

func (b *BadgerStore) RemoveElement(_ context.Context, key string, expected []byte) (bool, error) {
	var removed bool
	err := b.db.Update(func(txn *badger.Txn) error {
		cur, err := getTxn(txn, key)
		if err != nil || cur == nil || !bytes.Equal(cur, expected) {
			return err
		}
		removed = true
		return txn.Delete([]byte(key))
	})
	return removed, err
}

func (b *BadgerStore) Replace(_ context.Context, key string, value []byte) ([]byte, error) {
	var prev []byte
	err := b.db.Update(func(txn *badger.Txn) error {
		var err error
		if prev, err = getTxn(txn, key); err != nil || prev == nil {
			return err
		}
		return txn.Set([]byte(key), value)
	})
	return prev, err
}

func (b *BadgerStore) ReplaceElement(_ context.Context, key string, oldValue, newValue []byte) (bool, error) {
	var replaced bool
	err := b.db.Update(func(txn *badger.Txn) error {
		cur, err := getTxn(txn, key)
		if err != nil || cur == nil || !bytes.Equal(cur, oldValue) {
			return err
		}
		replaced = true
		return txn.Set([]byte(key), newValue)
	})
	return replaced, err
}

// Size counts live keys with a key-only iteration
func (b *BadgerStore) Size(_ context.Context) (int64, error) {
	var n int64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (b *BadgerStore) Footprint(_ context.Context) (Footprint, error) {
	lsm, vlog := b.db.Size()
	return Footprint{Heap: Unsupported, OffHeap: Unsupported, Disk: lsm + vlog}, nil
}
