// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package db

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/rollquaye/hyperlane-monorepo/pkg/lifecycle"
)

var (
	// ErrBucketNotExist indicates certain bucket does not exist in db
	ErrBucketNotExist = errors.New("bucket not exist in DB")
	// ErrNotExist indicates certain item does not exist in db
	ErrNotExist = errors.New("not exist in DB")
	// ErrIO indicates the generic error of DB I/O operation
	ErrIO = errors.New("DB I/O operation error")
)

// KVStore is the interface of KV store.
type KVStore interface {
	lifecycle.StartStopper

	// Put insert or update a record identified by (namespace, key)
	Put(string, []byte, []byte) error
	// Get gets a record by (namespace, key)
	Get(string, []byte) ([]byte, error)
	// Delete deletes a record by (namespace, key)
	Delete(string, []byte) error
	// Commit persists a batch all-or-nothing
	Commit(KVStoreBatch) error
	// GetKeyByPrefix retrieves all keys under the namespace with the prefix, sorted
	GetKeyByPrefix(namespace string, prefix []byte) ([][]byte, error)
}

const _keyDelimiter = "."

// memKVStore is the in-memory implementation of KVStore for testing purpose
type memKVStore struct {
	mutex  sync.RWMutex
	bucket map[string]struct{}
	data   map[string][]byte
}

// NewMemKVStore instantiates an in-memory KV store
func NewMemKVStore() KVStore {
	return &memKVStore{
		bucket: make(map[string]struct{}),
		data:   make(map[string][]byte),
	}
}

func (m *memKVStore) Start(_ context.Context) error { return nil }

func (m *memKVStore) Stop(_ context.Context) error { return nil }

// Put inserts a <key, value> record
func (m *memKVStore) Put(namespace string, key, value []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.put(namespace, key, value)
	return nil
}

// Get retrieves a record
func (m *memKVStore) Get(namespace string, key []byte) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if _, ok := m.bucket[namespace]; !ok {
		return nil, errors.Wrapf(ErrBucketNotExist, "namespace = %s doesn't exist", namespace)
	}
	value, ok := m.data[namespace+_keyDelimiter+string(key)]
	if !ok {
		return nil, errors.Wrapf(ErrNotExist, "key = %x doesn't exist", key)
	}
	return value, nil
}

// Delete deletes a record
func (m *memKVStore) Delete(namespace string, key []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.data, namespace+_keyDelimiter+string(key))
	return nil
}

// Commit commits a batch
func (m *memKVStore) Commit(b KVStoreBatch) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i := 0; i < b.Size(); i++ {
		write, err := b.Entry(i)
		if err != nil {
			return err
		}
		switch write.WriteType {
		case Put:
			m.put(write.Namespace, write.Key, write.Value)
		case Delete:
			delete(m.data, write.Namespace+_keyDelimiter+string(write.Key))
		}
	}
	b.Clear()
	return nil
}

// GetKeyByPrefix retrieves all keys under the namespace with the prefix
func (m *memKVStore) GetKeyByPrefix(namespace string, prefix []byte) ([][]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if _, ok := m.bucket[namespace]; !ok {
		return nil, nil
	}
	var keys [][]byte
	nsPrefix := namespace + _keyDelimiter
	for k := range m.data {
		if len(k) < len(nsPrefix) || k[:len(nsPrefix)] != nsPrefix {
			continue
		}
		key := []byte(k[len(nsPrefix):])
		if bytes.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	return keys, nil
}

func (m *memKVStore) put(namespace string, key, value []byte) {
	m.bucket[namespace] = struct{}{}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[namespace+_keyDelimiter+string(key)] = v
}
