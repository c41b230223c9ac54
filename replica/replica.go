// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package replica implements a verifiable mirror of a remote ledger's
// commitment root. Submitted roots wait in a FIFO queue for a fixed
// optimistic delay before they may become current; proven messages are then
// processed against the confirmed roots in strict sequence order.
package replica

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rollquaye/hyperlane-monorepo/crypto"
	"github.com/rollquaye/hyperlane-monorepo/db"
	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
	"github.com/rollquaye/hyperlane-monorepo/pkg/log"
)

type (
	// UpdateHook runs right before an accepted root transition mutates the queue
	UpdateHook func(oldRoot, newRoot hash.Hash256)

	// ConfirmHook runs after expired roots are dequeued and before current advances
	ConfirmHook func(pending hash.Hash256)

	// Option sets an option on the replica
	Option func(*Replica)

	// Replica is the root-confirmation state machine. All exported methods
	// serialize on the instance mutex and hold it for their full duration, so
	// no operation ever observes another partially applied.
	Replica struct {
		mutex sync.Mutex
		cfg   Config
		clock clock.Clock
		auth  crypto.Authenticator
		store *Store

		current   hash.Hash256
		previous  hash.Hash256
		failed    bool
		queue     *Queue
		queueHead uint64
		queueTail uint64
		confirmAt map[hash.Hash256]time.Time

		preUpdate  UpdateHook
		preConfirm ConfirmHook
	}
)

// WithClock sets the clock source, overriding the wall clock
func WithClock(c clock.Clock) Option {
	return func(r *Replica) {
		r.clock = c
	}
}

// WithStore persists the state surface on the given store
func WithStore(s *Store) Option {
	return func(r *Replica) {
		r.store = s
	}
}

// WithUpdateHook runs the hook right before each accepted root transition
func WithUpdateHook(h UpdateHook) Option {
	return func(r *Replica) {
		r.preUpdate = h
	}
}

// NewReplica creates a replica, restoring the persisted state surface if a
// store is set and holds one
func NewReplica(cfg Config, auth crypto.Authenticator, opts ...Option) (*Replica, error) {
	r, _, err := newReplica(cfg, auth, opts...)
	return r, err
}

func newReplica(cfg Config, auth crypto.Authenticator, opts ...Option) (*Replica, *State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid replica config")
	}
	genesis, err := cfg.GenesisRoot()
	if err != nil {
		return nil, nil, err
	}
	r := &Replica{
		cfg:       cfg,
		clock:     clock.New(),
		auth:      auth,
		current:   genesis,
		queue:     NewQueue(),
		confirmAt: make(map[hash.Hash256]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		return r, nil, nil
	}
	state, err := r.store.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load replica state")
	}
	if state == nil {
		b := db.NewBatch()
		r.store.stageCurrent(b, r.current)
		r.store.stageFailed(b, false)
		r.store.stageLastProcessed(b, 0)
		r.store.stageQueueHead(b, 0)
		r.store.stageQueueTail(b, 0)
		if err := r.store.Commit(b); err != nil {
			return nil, nil, errors.Wrap(err, "failed to persist genesis state")
		}
		return r, nil, nil
	}
	r.current = state.Current
	r.previous = state.Previous
	r.failed = state.Failed
	r.queueHead = state.QueueHead
	r.queueTail = state.QueueTail
	for _, root := range state.Queue {
		r.queue.Enqueue(root)
	}
	for root, deadline := range state.ConfirmAt {
		r.confirmAt[root] = deadline
	}
	_pendingRootsMtc.Set(float64(r.queue.Length()))
	return r, state, nil
}

// LocalDomain returns the domain this replica processes messages for
func (r *Replica) LocalDomain() uint32 { return r.cfg.LocalDomain }

// RemoteDomain returns the domain of the mirrored remote ledger
func (r *Replica) RemoteDomain() uint32 { return r.cfg.RemoteDomain }

// Current returns the latest confirmed root
func (r *Replica) Current() hash.Hash256 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.current
}

// Previous returns the confirmed root of one generation ago
func (r *Replica) Previous() hash.Hash256 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.previous
}

// Failed returns whether the replica has permanently failed
func (r *Replica) Failed() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.failed
}

// QueueLength returns the number of pending roots
func (r *Replica) QueueLength() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.queue.Length()
}

// QueueEnd returns the most recently enqueued pending root
func (r *Replica) QueueEnd() (hash.Hash256, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	root, err := r.queue.LastItem()
	return root, err == nil
}

// QueueContains returns whether the root is pending
func (r *Replica) QueueContains(root hash.Hash256) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.queue.Contains(root)
}

// PendingRoots returns the pending roots, oldest first
func (r *Replica) PendingRoots() []hash.Hash256 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.queue.Items()
}

// ConfirmAt returns the confirmation deadline of a pending root
func (r *Replica) ConfirmAt(root hash.Hash256) (time.Time, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	deadline, ok := r.confirmAt[root]
	return deadline, ok
}

// NextPending returns the oldest pending root and its deadline, if any
func (r *Replica) NextPending() (hash.Hash256, time.Time, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	root, err := r.queue.Peek()
	if err != nil {
		return hash.ZeroHash256, time.Time{}, false
	}
	return root, r.confirmAt[root], true
}

// AcceptableRoot returns whether proofs against the root are currently accepted
func (r *Replica) AcceptableRoot(root hash.Hash256) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.acceptableRoot(root)
}

func (r *Replica) acceptableRoot(root hash.Hash256) bool {
	if root == hash.ZeroHash256 {
		return false
	}
	return root == r.current || root == r.previous
}

// Update submits a signed root transition. The old root must extend the
// pending history (queue end, or current when the queue is empty) and the
// signature must authenticate the pair under the authorized updater. The new
// root is enqueued with deadline now + optimistic delay.
func (r *Replica) Update(oldRoot, newRoot hash.Hash256, sig []byte) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.failed {
		return ErrReplicaFailed
	}
	expected := r.current
	if last, err := r.queue.LastItem(); err == nil {
		expected = last
	}
	if oldRoot != expected {
		return errors.Wrapf(ErrQueueDiscontinuity, "old root = %s, end of history = %s", oldRoot.Hex(), expected.Hex())
	}
	if !r.auth.Verify(oldRoot, newRoot, sig) {
		return ErrBadSignature
	}
	if r.preUpdate != nil {
		r.preUpdate(oldRoot, newRoot)
	}

	deadline := r.clock.Now().Add(r.cfg.OptimisticDelay)
	index := r.queueTail
	r.confirmAt[newRoot] = deadline
	r.queue.Enqueue(newRoot)
	r.queueTail = index + 1

	if r.store != nil {
		b := db.NewBatch()
		r.store.stageQueueItem(b, index, newRoot)
		r.store.stageQueueTail(b, r.queueTail)
		r.store.stageConfirmAt(b, newRoot, deadline)
		if err := r.store.Commit(b); err != nil {
			r.queue.dropTail()
			delete(r.confirmAt, newRoot)
			r.queueTail = index
			return errors.Wrap(err, "failed to persist update")
		}
	}
	_pendingRootsMtc.Set(float64(r.queue.Length()))
	log.L().Info("Enqueued pending root.",
		zap.String("root", newRoot.Hex()),
		zap.String("oldRoot", oldRoot.Hex()),
		zap.Time("confirmAt", deadline))
	return nil
}

// Confirm promotes the most recent pending root whose deadline has passed to
// current. All earlier expired roots are fast-forwarded through in the same
// call and never become current.
func (r *Replica) Confirm() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.failed {
		return ErrReplicaFailed
	}
	if r.queue.Length() == 0 {
		return ErrEmptyQueue
	}

	now := r.clock.Now()
	confirmable := 0
	var pending hash.Hash256
	for _, root := range r.queue.Items() {
		if now.Before(r.confirmAt[root]) {
			break
		}
		pending = root
		confirmable++
	}
	if confirmable == 0 {
		next, _ := r.queue.Peek()
		return errors.Wrapf(ErrNotYetDue, "next root %s confirmable at %s", next.Hex(), r.confirmAt[next])
	}

	prevCurrent, prevPrevious, prevHead := r.current, r.previous, r.queueHead
	dequeued := make([]hash.Hash256, 0, confirmable)
	deadlines := make([]time.Time, 0, confirmable)
	for i := 0; i < confirmable; i++ {
		root, err := r.queue.Dequeue()
		if err != nil {
			return err
		}
		dequeued = append(dequeued, root)
		deadlines = append(deadlines, r.confirmAt[root])
		delete(r.confirmAt, root)
	}
	r.queueHead = prevHead + uint64(confirmable)
	if r.preConfirm != nil {
		r.preConfirm(pending)
	}
	r.current = pending

	if r.store != nil {
		b := db.NewBatch()
		for i := range dequeued {
			r.store.deleteQueueItem(b, prevHead+uint64(i))
			r.store.deleteConfirmAt(b, dequeued[i])
		}
		r.store.stageQueueHead(b, r.queueHead)
		r.store.stageCurrent(b, r.current)
		r.store.stagePrevious(b, r.previous)
		if err := r.store.Commit(b); err != nil {
			r.queue.restoreHead(dequeued)
			for i := range dequeued {
				r.confirmAt[dequeued[i]] = deadlines[i]
			}
			r.current, r.previous, r.queueHead = prevCurrent, prevPrevious, prevHead
			return errors.Wrap(err, "failed to persist confirm")
		}
	}
	_confirmedRootsMtc.Add(float64(confirmable))
	_pendingRootsMtc.Set(float64(r.queue.Length()))
	log.L().Info("Confirmed root.",
		zap.String("current", r.current.Hex()),
		zap.String("previous", r.previous.Hex()),
		zap.Int("fastForwarded", confirmable-1))
	return nil
}

// DoubleUpdate proves updater fraud: two valid signatures over conflicting
// transitions from the same old root. A valid proof permanently fails the
// replica.
func (r *Replica) DoubleUpdate(oldRoot hash.Hash256, newRoots [2]hash.Hash256, sigs [2][]byte) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.failed {
		return ErrReplicaFailed
	}
	if newRoots[0] == newRoots[1] {
		return errors.Wrap(ErrBadDoubleUpdate, "transitions are identical")
	}
	if !r.auth.Verify(oldRoot, newRoots[0], sigs[0]) || !r.auth.Verify(oldRoot, newRoots[1], sigs[1]) {
		return ErrBadSignature
	}
	r.setFailed()
	log.L().Error("Replica failed: double update proven.",
		zap.String("oldRoot", oldRoot.Hex()),
		zap.String("newRootA", newRoots[0].Hex()),
		zap.String("newRootB", newRoots[1].Hex()))
	return nil
}

// setFailed trips the permanent failure flag. The flag sticks in memory even
// if persisting it fails; a replica that cannot record its own failure must
// still refuse to operate.
func (r *Replica) setFailed() {
	r.failed = true
	_failedMtc.Set(1)
	if r.store == nil {
		return
	}
	b := db.NewBatch()
	r.store.stageFailed(b, true)
	if err := r.store.Commit(b); err != nil {
		log.L().Error("Failed to persist failure flag.", zap.Error(err))
	}
}
