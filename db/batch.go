// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package db

import (
	"sync"

	"github.com/pkg/errors"
)

const (
	// Put indicates the type of write operation to be Put
	Put int32 = iota
	// Delete indicates the type of write operation to be Delete
	Delete
)

type (
	// KVStoreBatch defines a batch buffer that stages Put/Delete entries in
	// sequential order. Stage entries with Put/Delete, then persist them all
	// at once with KVStore.Commit(b). A successful commit clears the batch.
	KVStoreBatch interface {
		// Put insert or update a record identified by (namespace, key)
		Put(string, []byte, []byte)
		// Delete deletes a record by (namespace, key)
		Delete(string, []byte)
		// Size returns the size of batch
		Size() int
		// Entry returns the entry at the index
		Entry(int) (*WriteInfo, error)
		// Clear clears entries staged in batch
		Clear()
	}

	// WriteInfo is the struct to store a Put/Delete operation
	WriteInfo struct {
		WriteType int32
		Namespace string
		Key       []byte
		Value     []byte
	}

	baseKVStoreBatch struct {
		mutex      sync.Mutex
		writeQueue []WriteInfo
	}
)

// NewBatch returns a batch
func NewBatch() KVStoreBatch {
	return &baseKVStoreBatch{}
}

func (b *baseKVStoreBatch) Put(namespace string, key, value []byte) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)
	b.writeQueue = append(b.writeQueue, WriteInfo{WriteType: Put, Namespace: namespace, Key: k, Value: v})
}

func (b *baseKVStoreBatch) Delete(namespace string, key []byte) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	k := make([]byte, len(key))
	copy(k, key)
	b.writeQueue = append(b.writeQueue, WriteInfo{WriteType: Delete, Namespace: namespace, Key: k})
}

func (b *baseKVStoreBatch) Size() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.writeQueue)
}

func (b *baseKVStoreBatch) Entry(index int) (*WriteInfo, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if index < 0 || index >= len(b.writeQueue) {
		return nil, errors.Errorf("index %d out of range", index)
	}
	return &b.writeQueue[index], nil
}

func (b *baseKVStoreBatch) Clear() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.writeQueue = nil
}
