// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package replica

import (
	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
)

// Queue is a FIFO of pending roots, oldest first. It is not safe for
// concurrent use; the owning replica serializes access.
type Queue struct {
	roots []hash.Hash256
}

// NewQueue creates an empty root queue
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a root at the tail
func (q *Queue) Enqueue(root hash.Hash256) {
	q.roots = append(q.roots, root)
}

// Dequeue removes and returns the root at the head
func (q *Queue) Dequeue() (hash.Hash256, error) {
	if len(q.roots) == 0 {
		return hash.ZeroHash256, ErrEmptyQueue
	}
	root := q.roots[0]
	q.roots = q.roots[1:]
	return root, nil
}

// Peek returns the root at the head without removing it
func (q *Queue) Peek() (hash.Hash256, error) {
	if len(q.roots) == 0 {
		return hash.ZeroHash256, ErrEmptyQueue
	}
	return q.roots[0], nil
}

// LastItem returns the root at the tail without removing it
func (q *Queue) LastItem() (hash.Hash256, error) {
	if len(q.roots) == 0 {
		return hash.ZeroHash256, ErrEmptyQueue
	}
	return q.roots[len(q.roots)-1], nil
}

// Length returns the number of pending roots
func (q *Queue) Length() int {
	return len(q.roots)
}

// Contains returns whether the root is pending in the queue
func (q *Queue) Contains(root hash.Hash256) bool {
	for _, r := range q.roots {
		if r == root {
			return true
		}
	}
	return false
}

// dropTail removes the root at the tail, undoing an enqueue
func (q *Queue) dropTail() {
	if len(q.roots) > 0 {
		q.roots = q.roots[:len(q.roots)-1]
	}
}

// restoreHead reinserts previously dequeued roots at the head, oldest first
func (q *Queue) restoreHead(roots []hash.Hash256) {
	q.roots = append(append([]hash.Hash256{}, roots...), q.roots...)
}

// Items returns a copy of the pending roots, oldest first
func (q *Queue) Items() []hash.Hash256 {
	items := make([]hash.Hash256, len(q.roots))
	copy(items, q.roots)
	return items
}
