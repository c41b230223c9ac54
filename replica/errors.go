// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package replica

import "github.com/pkg/errors"

var (
	// ErrReplicaFailed indicates the replica has permanently failed and rejects all mutating calls
	ErrReplicaFailed = errors.New("replica has failed")
	// ErrBadSignature indicates the root transition was not signed by the authorized updater
	ErrBadSignature = errors.New("bad updater signature")
	// ErrQueueDiscontinuity indicates the submitted old root does not extend the pending history
	ErrQueueDiscontinuity = errors.New("old root does not match the end of pending history")
	// ErrEmptyQueue indicates the pending queue holds no roots
	ErrEmptyQueue = errors.New("pending queue is empty")
	// ErrNotYetDue indicates no pending root's confirmation deadline has passed
	ErrNotYetDue = errors.New("no pending root is confirmable yet")
	// ErrBadSequence indicates the message's sequence number is not the next to process
	ErrBadSequence = errors.New("message sequence out of order")
	// ErrNotPending indicates the message has not been proven, or was already processed
	ErrNotPending = errors.New("message is not pending")
	// ErrAlreadyProven indicates the leaf already has a pending or processed status
	ErrAlreadyProven = errors.New("leaf already proven")
	// ErrWrongDestination indicates the message is addressed to a different domain
	ErrWrongDestination = errors.New("message destination is not the local domain")
	// ErrInsufficientBudget indicates the caller lacks the dispatch budget plus the reserved margin
	ErrInsufficientBudget = errors.New("insufficient budget to dispatch")
	// ErrProofRejected indicates the inclusion proof does not verify against an acceptable root
	ErrProofRejected = errors.New("inclusion proof rejected")
	// ErrBadDoubleUpdate indicates the submitted fraud proof does not prove conflicting updates
	ErrBadDoubleUpdate = errors.New("not a double update")
	// ErrMalformedMessage indicates the raw message bytes cannot be decoded
	ErrMalformedMessage = errors.New("malformed message")
)
