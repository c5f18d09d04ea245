package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/dkeye/Chat/internal/domain"
)

var userPrefix = []byte("user:")

// UserRepository is the local identity store, keyed by username.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(username string) []byte {
	return append(append([]byte{}, userPrefix...), username...)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := userKey(u.Username)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return domain.ErrIdentityExists
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, value)
	})
}

// Get resolves an identity by username.
func (r *UserRepository) Get(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var u domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &u)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrIdentityNotFound, username)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all identities in lexical username order.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = userPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(userPrefix); it.ValidForPrefix(userPrefix); it.Next() {
			var u domain.User
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &u)
			}); err != nil {
				return err
			}
			out = append(out, &u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
