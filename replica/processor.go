// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package replica

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rollquaye/hyperlane-monorepo/crypto"
	"github.com/rollquaye/hyperlane-monorepo/db"
	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
	"github.com/rollquaye/hyperlane-monorepo/pkg/log"
)

// Status is the lifecycle status of a message identity
type Status uint8

const (
	// StatusNone means the message was never proven
	StatusNone Status = iota
	// StatusPending means the message's inclusion proof was accepted
	StatusPending
	// StatusProcessed means the message was dispatched, whatever the handler outcome
	StatusProcessed
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessed:
		return "processed"
	default:
		return "none"
	}
}

// dispatch outcome labels
const (
	_outcomeHandled         = "handled"
	_outcomeHandlerError    = "handler_error"
	_outcomeHandlerPanic    = "handler_panic"
	_outcomeBudgetExhausted = "budget_exhausted"
	_outcomeNoHandler       = "no_handler"
)

type (
	// Handler is an untrusted recipient callable. It may fail, panic or
	// overrun its budget; the processor captures the outcome and never lets
	// it unwind a processing call.
	Handler interface {
		Handle(ctx context.Context, msg *Message) ([]byte, error)
	}

	// HandlerFunc adapts a function to the Handler interface
	HandlerFunc func(ctx context.Context, msg *Message) ([]byte, error)

	// HandlerRegistry maps recipient identifiers to their handlers
	HandlerRegistry struct {
		handlers map[hash.Hash256]Handler
	}

	// Processor is the message-processing replica variant. On top of the
	// root-confirmation state machine it tracks per-message status and a
	// strictly increasing processed-sequence counter, and dispatches proven
	// payloads to recipient handlers under a bounded budget.
	Processor struct {
		*Replica
		lastProcessed uint32
		status        map[hash.Hash256]Status
		handlers      *HandlerRegistry
	}
)

// Handle calls the function
func (f HandlerFunc) Handle(ctx context.Context, msg *Message) ([]byte, error) {
	return f(ctx, msg)
}

// NewHandlerRegistry creates an empty handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[hash.Hash256]Handler)}
}

// Register binds a recipient identifier to a handler
func (reg *HandlerRegistry) Register(recipient hash.Hash256, h Handler) error {
	if _, exists := reg.handlers[recipient]; exists {
		return errors.Errorf("recipient %s already registered", recipient.Hex())
	}
	reg.handlers[recipient] = h
	return nil
}

// Handler looks up the handler of a recipient
func (reg *HandlerRegistry) Handler(recipient hash.Hash256) (Handler, bool) {
	h, ok := reg.handlers[recipient]
	return h, ok
}

// NewProcessor creates a message-processing replica. The registry must be
// fully populated before the processor starts taking calls.
func NewProcessor(cfg Config, auth crypto.Authenticator, registry *HandlerRegistry, opts ...Option) (*Processor, error) {
	r, state, err := newReplica(cfg, auth, opts...)
	if err != nil {
		return nil, err
	}
	p := &Processor{
		Replica:  r,
		status:   make(map[hash.Hash256]Status),
		handlers: registry,
	}
	// keep exactly one prior root provable across a confirmation
	r.preConfirm = func(_ hash.Hash256) {
		r.previous = r.current
	}
	if state != nil {
		p.lastProcessed = state.LastProcessed
		for leaf, status := range state.Status {
			p.status[leaf] = status
		}
	}
	return p, nil
}

// LastProcessed returns the sequence number of the last processed message
func (p *Processor) LastProcessed() uint32 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.lastProcessed
}

// Status returns the status of a message leaf
func (p *Processor) Status(leaf hash.Hash256) Status {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.status[leaf]
}

// Prove checks a message leaf's inclusion against the confirmed roots. The
// recomputed root may match current or previous: current can advance between
// proof construction and submission, and the prior root stays acceptable for
// exactly one generation. An accepted leaf becomes pending.
func (p *Processor) Prove(leaf hash.Hash256, proof crypto.Proof, index uint32) (bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.prove(leaf, proof, index)
}

func (p *Processor) prove(leaf hash.Hash256, proof crypto.Proof, index uint32) (bool, error) {
	if p.failed {
		return false, ErrReplicaFailed
	}
	if p.status[leaf] != StatusNone {
		return false, errors.Wrapf(ErrAlreadyProven, "leaf = %s", leaf.Hex())
	}
	actual := crypto.BranchRoot(leaf, proof, index)
	if !p.acceptableRoot(actual) {
		return false, nil
	}
	p.status[leaf] = StatusPending
	if p.store != nil {
		b := db.NewBatch()
		p.store.stageStatus(b, leaf, StatusPending)
		if err := p.store.Commit(b); err != nil {
			delete(p.status, leaf)
			return false, errors.Wrap(err, "failed to persist proven leaf")
		}
	}
	log.L().Debug("Proved message leaf.", zap.String("leaf", leaf.Hex()), zap.String("root", actual.Hex()))
	return true, nil
}

// Process dispatches a pending message to its recipient handler. Sequence and
// status bookkeeping is committed before the untrusted dispatch, so a failing
// handler can never cause a reprocess: the message is marked processed exactly
// once whatever the handler outcome. The dispatch outcome is returned as data.
func (p *Processor) Process(ctx context.Context, msg *Message) (bool, []byte, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.process(ctx, msg)
}

func (p *Processor) process(ctx context.Context, msg *Message) (bool, []byte, error) {
	if p.failed {
		return false, nil, ErrReplicaFailed
	}
	if msg.Destination != p.cfg.LocalDomain {
		return false, nil, errors.Wrapf(ErrWrongDestination, "destination = %d, local domain = %d", msg.Destination, p.cfg.LocalDomain)
	}
	if msg.Sequence != p.lastProcessed+1 {
		return false, nil, errors.Wrapf(ErrBadSequence, "sequence = %d, want %d", msg.Sequence, p.lastProcessed+1)
	}
	leaf := msg.Hash()
	if p.status[leaf] != StatusPending {
		return false, nil, errors.Wrapf(ErrNotPending, "leaf = %s, status = %s", leaf.Hex(), p.status[leaf])
	}
	// the dispatch needs its full budget plus the margin reserved for the
	// replica's own bookkeeping; abort cleanly if the caller cannot grant it
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := deadline.Sub(p.clock.Now()); remaining < p.cfg.ProcessBudget+p.cfg.ReserveBudget {
			return false, nil, errors.Wrapf(ErrInsufficientBudget, "remaining = %s, need %s", remaining, p.cfg.ProcessBudget+p.cfg.ReserveBudget)
		}
	}

	// commit bookkeeping before the untrusted call
	prevLast := p.lastProcessed
	p.lastProcessed = msg.Sequence
	p.status[leaf] = StatusProcessed
	if p.store != nil {
		b := db.NewBatch()
		p.store.stageLastProcessed(b, msg.Sequence)
		p.store.stageStatus(b, leaf, StatusProcessed)
		if err := p.store.Commit(b); err != nil {
			p.lastProcessed = prevLast
			p.status[leaf] = StatusPending
			return false, nil, errors.Wrap(err, "failed to persist processing bookkeeping")
		}
	}

	success, ret, outcome := p.dispatch(ctx, msg)
	_processedMtc.WithLabelValues(outcome).Inc()
	log.L().Info("Processed message.",
		zap.Uint32("sequence", msg.Sequence),
		zap.String("leaf", leaf.Hex()),
		zap.String("recipient", msg.Recipient.Hex()),
		zap.String("outcome", outcome))
	return success, ret, nil
}

// dispatch invokes the recipient handler under a hard budget with a panic
// barrier. Failures, panics and overruns are captured as the outcome, never
// propagated.
func (p *Processor) dispatch(ctx context.Context, msg *Message) (bool, []byte, string) {
	handler, ok := p.handlers.Handler(msg.Recipient)
	if !ok {
		return false, nil, _outcomeNoHandler
	}

	type result struct {
		ret      []byte
		err      error
		panicked bool
	}
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: errors.Errorf("handler panic: %v", rec), panicked: true}
			}
		}()
		ret, err := handler.Handle(dctx, msg)
		done <- result{ret: ret, err: err}
	}()

	timer := p.clock.Timer(p.cfg.ProcessBudget)
	defer timer.Stop()
	select {
	case res := <-done:
		if res.err != nil {
			outcome := _outcomeHandlerError
			if res.panicked {
				outcome = _outcomeHandlerPanic
			}
			return false, []byte(res.err.Error()), outcome
		}
		return true, res.ret, _outcomeHandled
	case <-timer.C:
		// the handler goroutine is cancelled and abandoned; bookkeeping has
		// already been committed so the overrun cannot corrupt state
		cancel()
		return false, nil, _outcomeBudgetExhausted
	}
}

// ProveAndProcess composes Prove and Process in one serialized call
func (p *Processor) ProveAndProcess(ctx context.Context, leaf hash.Hash256, proof crypto.Proof, index uint32, msg *Message) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	accepted, err := p.prove(leaf, proof, index)
	if err != nil {
		return err
	}
	if !accepted {
		return errors.Wrapf(ErrProofRejected, "leaf = %s", leaf.Hex())
	}
	_, _, err = p.process(ctx, msg)
	return err
}

// ProcessBudget returns the handler execution budget
func (p *Processor) ProcessBudget() time.Duration { return p.cfg.ProcessBudget }

// ReserveBudget returns the margin reserved around a dispatch
func (p *Processor) ReserveBudget() time.Duration { return p.cfg.ReserveBudget }
