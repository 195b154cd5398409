// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"twig/internal/errors"

	"github.com/dgraph-io/badger/v4"
)

// Entity represents any storable entity with an ID
type Entity interface {
	GetID() string
}

// BadgerStore stores JSON entities under "<prefix>:<id>" keys.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{
		db:     db,
		prefix: prefix,
	}
}

func (s *BadgerStore) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, id))
}

func (s *BadgerStore) keyPrefix() []byte {
	return []byte(s.prefix + ":")
}

func (s *BadgerStore) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), s.prefix+":")
}

func (s *BadgerStore) Create(entity Entity) error {
	if entity.GetID() == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}

	key := s.makeKey(entity.GetID())
	return s.db.Update(func(txn *badger.Txn) error {
		// Check if key already exists
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("entity already exists: %s", entity.GetID())
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		return txn.Set(key, data)
	})
}

// PutTxn writes entity inside txn, replacing any existing value.
func (s *BadgerStore) PutTxn(txn *badger.Txn, entity Entity) error {
	if entity.GetID() == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}
	return txn.Set(s.makeKey(entity.GetID()), data)
}

// Put writes entity in its own transaction.
func (s *BadgerStore) Put(entity Entity) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.PutTxn(txn, entity)
	})
}

func (s *BadgerStore) Get(id string, entity any) error {
	key := s.makeKey(id)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, entity)
		})
	})

	if err == badger.ErrKeyNotFound {
		return errors.NotFound(fmt.Sprintf("%s not found: %s", s.prefix, id))
	}
	return err
}

func (s *BadgerStore) Update(entity Entity) error {
	if entity.GetID() == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}

	key := s.makeKey(entity.GetID())
	return s.db.Update(func(txn *badger.Txn) error {
		// Check if exists
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return errors.NotFound(fmt.Sprintf("%s not found: %s", s.prefix, entity.GetID()))
		} else if err != nil {
			return err
		}

		return txn.Set(key, data)
	})
}

// DeleteTxn removes id inside txn. Missing keys are not an error.
func (s *BadgerStore) DeleteTxn(txn *badger.Txn, id string) error {
	return txn.Delete(s.makeKey(id))
}

func (s *BadgerStore) Delete(id string) error {
	key := s.makeKey(id)

	return s.db.Update(func(txn *badger.Txn) error {
		// Check if exists
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return errors.NotFound(fmt.Sprintf("%s not found: %s", s.prefix, id))
		} else if err != nil {
			return err
		}

		return txn.Delete(key)
	})
}

// List decodes every entity under the prefix into results, which must be a
// pointer to a slice. Entities come back in key order.
func (s *BadgerStore) List(results any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.keyPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		var values []json.RawMessage

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				values = append(values, append([]byte(nil), val...))
				return nil
			})
			if err != nil {
				return err
			}
		}

		// Marshal collected values into final result
		data, err := json.Marshal(values)
		if err != nil {
			return err
		}

		return json.Unmarshal(data, results)
	})

	if err != nil {
		return fmt.Errorf("listing %s entities: %w", s.prefix, err)
	}
	return nil
}

// Keys returns the IDs stored under the prefix in key order.
func (s *BadgerStore) Keys() ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.keyPrefix()
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			ids = append(ids, s.stripPrefix(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s keys: %w", s.prefix, err)
	}
	return ids, nil
}
