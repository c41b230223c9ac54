// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package replica

import (
	"time"

	"github.com/pkg/errors"

	"github.com/rollquaye/hyperlane-monorepo/db"
	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
	"github.com/rollquaye/hyperlane-monorepo/pkg/util/byteutil"
)

// namespaces of the persisted state surface
const (
	_metaNS    = "replica.meta"
	_queueNS   = "replica.queue"
	_confirmNS = "replica.confirm"
	_statusNS  = "replica.status"
)

// meta keys
var (
	_currentKey       = []byte("current")
	_previousKey      = []byte("previous")
	_failedKey        = []byte("failed")
	_lastProcessedKey = []byte("lastProcessed")
	_queueHeadKey     = []byte("queueHead")
	_queueTailKey     = []byte("queueTail")
)

type (
	// Store persists the replica's state surface on a KVStore. Each mutating
	// operation stages its delta into a batch and commits it all-or-nothing.
	Store struct {
		kv db.KVStore
	}

	// State is the full persisted state surface, as restored at startup
	State struct {
		Current       hash.Hash256
		Previous      hash.Hash256
		Failed        bool
		LastProcessed uint32
		QueueHead     uint64
		QueueTail     uint64
		Queue         []hash.Hash256
		ConfirmAt     map[hash.Hash256]time.Time
		Status        map[hash.Hash256]Status
	}
)

// NewStore creates a store on the given KVStore
func NewStore(kv db.KVStore) *Store {
	return &Store{kv: kv}
}

// Commit persists the staged batch
func (s *Store) Commit(b db.KVStoreBatch) error {
	return s.kv.Commit(b)
}

// Load restores the persisted state surface, or nil if none was ever committed
func (s *Store) Load() (*State, error) {
	current, err := s.kv.Get(_metaNS, _currentKey)
	if err != nil {
		cause := errors.Cause(err)
		if cause == db.ErrNotExist || cause == db.ErrBucketNotExist {
			return nil, nil
		}
		return nil, err
	}
	state := &State{
		Current:   hash.BytesToHash256(current),
		ConfirmAt: make(map[hash.Hash256]time.Time),
		Status:    make(map[hash.Hash256]Status),
	}
	if v, err := s.kv.Get(_metaNS, _previousKey); err == nil {
		state.Previous = hash.BytesToHash256(v)
	}
	if v, err := s.kv.Get(_metaNS, _failedKey); err == nil {
		state.Failed = len(v) == 1 && v[0] == 1
	}
	if v, err := s.kv.Get(_metaNS, _lastProcessedKey); err == nil {
		state.LastProcessed = byteutil.BytesToUint32BigEndian(v)
	}
	if v, err := s.kv.Get(_metaNS, _queueHeadKey); err == nil {
		state.QueueHead = byteutil.BytesToUint64BigEndian(v)
	}
	if v, err := s.kv.Get(_metaNS, _queueTailKey); err == nil {
		state.QueueTail = byteutil.BytesToUint64BigEndian(v)
	}

	// queue indices are big-endian, so prefix enumeration yields FIFO order
	keys, err := s.kv.GetKeyByPrefix(_queueNS, nil)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		v, err := s.kv.Get(_queueNS, key)
		if err != nil {
			return nil, err
		}
		state.Queue = append(state.Queue, hash.BytesToHash256(v))
	}

	keys, err = s.kv.GetKeyByPrefix(_confirmNS, nil)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		v, err := s.kv.Get(_confirmNS, key)
		if err != nil {
			return nil, err
		}
		deadline := time.Unix(0, int64(byteutil.BytesToUint64BigEndian(v)))
		state.ConfirmAt[hash.BytesToHash256(key)] = deadline
	}

	keys, err = s.kv.GetKeyByPrefix(_statusNS, nil)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		v, err := s.kv.Get(_statusNS, key)
		if err != nil {
			return nil, err
		}
		if len(v) != 1 {
			return nil, errors.Errorf("corrupted status entry for leaf %x", key)
		}
		state.Status[hash.BytesToHash256(key)] = Status(v[0])
	}
	return state, nil
}

func (s *Store) stageCurrent(b db.KVStoreBatch, root hash.Hash256) {
	b.Put(_metaNS, _currentKey, root.Bytes())
}

func (s *Store) stagePrevious(b db.KVStoreBatch, root hash.Hash256) {
	b.Put(_metaNS, _previousKey, root.Bytes())
}

func (s *Store) stageFailed(b db.KVStoreBatch, failed bool) {
	v := []byte{0}
	if failed {
		v[0] = 1
	}
	b.Put(_metaNS, _failedKey, v)
}

func (s *Store) stageLastProcessed(b db.KVStoreBatch, sequence uint32) {
	b.Put(_metaNS, _lastProcessedKey, byteutil.Uint32ToBytesBigEndian(sequence))
}

func (s *Store) stageQueueHead(b db.KVStoreBatch, head uint64) {
	b.Put(_metaNS, _queueHeadKey, byteutil.Uint64ToBytesBigEndian(head))
}

func (s *Store) stageQueueTail(b db.KVStoreBatch, tail uint64) {
	b.Put(_metaNS, _queueTailKey, byteutil.Uint64ToBytesBigEndian(tail))
}

func (s *Store) stageQueueItem(b db.KVStoreBatch, index uint64, root hash.Hash256) {
	b.Put(_queueNS, byteutil.Uint64ToBytesBigEndian(index), root.Bytes())
}

func (s *Store) deleteQueueItem(b db.KVStoreBatch, index uint64) {
	b.Delete(_queueNS, byteutil.Uint64ToBytesBigEndian(index))
}

func (s *Store) stageConfirmAt(b db.KVStoreBatch, root hash.Hash256, deadline time.Time) {
	b.Put(_confirmNS, root.Bytes(), byteutil.Uint64ToBytesBigEndian(uint64(deadline.UnixNano())))
}

func (s *Store) deleteConfirmAt(b db.KVStoreBatch, root hash.Hash256) {
	b.Delete(_confirmNS, root.Bytes())
}

func (s *Store) stageStatus(b db.KVStoreBatch, leaf hash.Hash256, status Status) {
	b.Put(_statusNS, leaf.Bytes(), []byte{byte(status)})
}
