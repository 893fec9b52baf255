package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"artdiff/internal/model"
)

// Key prefixes.
const (
	prefixRevision     = "rev/"
	prefixRevisionPass = "revpass/"
	prefixRevisionKey  = "revkey/"
	prefixColor        = "color/"
	prefixColorKey     = "colorkey/"
	prefixColorModel   = "colormodel/"
	prefixComparison   = "cmp/"
	prefixComparePair  = "cmppair/"
	prefixResource     = "res/"
)

// sep separates key components that may themselves contain '/'.
const sep = "\x00"

// Tx is a single transaction. It is only valid inside the Update or View
// callback that produced it.
type Tx struct {
	txn *badger.Txn
	now func() time.Time
}

// Now returns the store clock's current time.
func (tx *Tx) Now() time.Time { return tx.now() }

func (tx *Tx) getJSON(key string, v any) error {
	item, err := tx.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %q: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func (tx *Tx) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	if err := tx.txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (tx *Tx) delete(key string) error {
	if err := tx.txn.Delete([]byte(key)); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// keysWithPrefix returns every key under prefix, without values.
func (tx *Tx) keysWithPrefix(prefix string) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := tx.txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys
}

// getIDs reads a JSON list of ids; a missing key is an empty list.
func (tx *Tx) getIDs(key string) ([]string, error) {
	var ids []string
	err := tx.getJSON(key, &ids)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	return ids, err
}
