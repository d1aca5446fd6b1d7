package kvstore

import "errors"

var ErrKeyNotFound = errors.New("kvstore: key not found")

// KVStore is an interface for a simple key-value store.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	// SetMulti writes all pairs in a single atomic transaction: either
	// every pair is applied or none is.
	SetMulti(pairs map[string][]byte) error
	Has(key string) (bool, error)
	Delete(key string) error
	Close() error
}
