// Package storage persists identities and messages in BadgerDB.
package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Open opens a badger database at path, or an in-memory one when inMemory is set.
func Open(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}
