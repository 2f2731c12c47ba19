package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// bucketName is the bbolt bucket holding workspace records.
var bucketName = []byte("workspace")

// Store persists workspace records as JSON values under string keys.
type Store interface {
	// Get decodes the value stored under key into value and reports whether it existed.
	Get(key string, value any) (bool, error)
	// Put encodes and stores value under key.
	Put(key string, value any) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Close releases the store.
	Close() error
}

// BoltStore is a Store backed by a bbolt database file.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens or creates the database at path, creating parent directories as needed.
func OpenBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open workspace database %v: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Get implements Store.
func (b *BoltStore) Get(key string, value any) (bool, error) {
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketName).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, value)
	})
	if err != nil {
		return false, fmt.Errorf("could not read %v from workspace: %w", key, err)
	}
	return found, nil
}

// Put implements Store.
func (b *BoltStore) Put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
}

// Delete implements Store.
func (b *BoltStore) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

// Close implements Store.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

// MemoryStore is a Store that keeps encoded records in memory.
type MemoryStore struct {
	lock    sync.Mutex
	records map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(key string, value any) (bool, error) {
	m.lock.Lock()
	data, ok := m.records[key]
	m.lock.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, value)
}

// Put implements Store.
func (m *MemoryStore) Put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.records[key] = data
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.records, key)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}
