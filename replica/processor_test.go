// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package replica

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/rollquaye/hyperlane-monorepo/crypto"
	"github.com/rollquaye/hyperlane-monorepo/db"
	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
)

var _testRecipient = hash.Hash256b([]byte("token bridge"))

// newTestMessages builds n sequenced messages and the tree committing them
func newTestMessages(t *testing.T, n int) ([]*Message, *crypto.Tree) {
	tree := crypto.NewTree()
	msgs := make([]*Message, n)
	for i := range msgs {
		msgs[i] = &Message{
			Origin:      _testRemoteDomain,
			Sender:      hash.Hash256b([]byte("home")),
			Sequence:    uint32(i + 1),
			Destination: _testLocalDomain,
			Recipient:   _testRecipient,
			Body:        []byte{byte(i)},
		}
		require.NoError(t, tree.Add(msgs[i].Hash()))
	}
	return msgs, tree
}

type echoHandler struct{}

func (echoHandler) Handle(_ context.Context, msg *Message) ([]byte, error) {
	return append([]byte("echo:"), msg.Body...), nil
}

func (f *testFixture) newProcessor(t *testing.T, registry *HandlerRegistry, opts ...Option) *Processor {
	p, err := NewProcessor(f.cfg, f.auth(), registry, append([]Option{WithClock(f.clock)}, opts...)...)
	require.NoError(t, err)
	return p
}

// advanceTo submits and confirms newRoot on top of the current history end
func advanceTo(t *testing.T, f *testFixture, p *Processor, oldRoot, newRoot hash.Hash256) {
	require.NoError(t, p.Update(oldRoot, newRoot, f.sign(t, oldRoot, newRoot)))
	f.clock.Add(_testDelay)
	require.NoError(t, p.Confirm())
}

func TestProcessSequencing(t *testing.T) {
	require := require.New(t)

	msgs, tree := newTestMessages(t, 3)
	root := tree.Root()
	f := newTestFixture(t, root)
	registry := NewHandlerRegistry()
	require.NoError(registry.Register(_testRecipient, echoHandler{}))
	p := f.newProcessor(t, registry)

	for i, msg := range msgs {
		proof, err := tree.ProofOfLeaf(uint32(i))
		require.NoError(err)
		accepted, err := p.Prove(msg.Hash(), proof, uint32(i))
		require.NoError(err)
		require.True(accepted)
		require.Equal(StatusPending, p.Status(msg.Hash()))
	}

	// out of order processing fails and leaves state unchanged
	_, _, err := p.Process(context.Background(), msgs[1])
	require.Equal(ErrBadSequence, errors.Cause(err))
	require.Equal(uint32(0), p.LastProcessed())
	require.Equal(StatusPending, p.Status(msgs[1].Hash()))

	// in order, sequence numbers form the contiguous series 1..n
	for i, msg := range msgs {
		ok, ret, err := p.Process(context.Background(), msg)
		require.NoError(err)
		require.True(ok)
		require.Equal(append([]byte("echo:"), msg.Body...), ret)
		require.Equal(uint32(i+1), p.LastProcessed())
		require.Equal(StatusProcessed, p.Status(msg.Hash()))
	}
}

func TestProcessExactlyOnce(t *testing.T) {
	require := require.New(t)

	msgs, tree := newTestMessages(t, 2)
	f := newTestFixture(t, tree.Root())
	registry := NewHandlerRegistry()
	require.NoError(registry.Register(_testRecipient, HandlerFunc(
		func(_ context.Context, _ *Message) ([]byte, error) {
			return nil, errors.New("handler rejects everything")
		})))
	p := f.newProcessor(t, registry)

	proof, err := tree.ProofOfLeaf(0)
	require.NoError(err)
	accepted, err := p.Prove(msgs[0].Hash(), proof, 0)
	require.NoError(err)
	require.True(accepted)

	// first attempt: handler fails, but the message is committed as processed
	ok, ret, err := p.Process(context.Background(), msgs[0])
	require.NoError(err)
	require.False(ok)
	require.Contains(string(ret), "handler rejects everything")
	require.Equal(StatusProcessed, p.Status(msgs[0].Hash()))
	require.Equal(uint32(1), p.LastProcessed())

	// second attempt always fails regardless of the first handler outcome
	_, _, err = p.Process(context.Background(), msgs[0])
	require.Equal(ErrNotPending, errors.Cause(err))
	require.Equal(uint32(1), p.LastProcessed())

	// re-proving a processed leaf is rejected too
	_, err = p.Prove(msgs[0].Hash(), proof, 0)
	require.Equal(ErrAlreadyProven, errors.Cause(err))
}

func TestProveGraceWindow(t *testing.T) {
	require := require.New(t)

	// three leaves committed under R0; R1 and R2 extend the history
	msgs, tree := newTestMessages(t, 3)
	r0 := tree.Root()
	r1 := hash.Hash256b([]byte("R1"))
	r2 := hash.Hash256b([]byte("R2"))
	f := newTestFixture(t, r0)
	p := f.newProcessor(t, NewHandlerRegistry())

	proofs := make([]crypto.Proof, 3)
	for i := range proofs {
		proof, err := tree.ProofOfLeaf(uint32(i))
		require.NoError(err)
		proofs[i] = proof
	}

	// provable against current
	accepted, err := p.Prove(msgs[0].Hash(), proofs[0], 0)
	require.NoError(err)
	require.True(accepted)

	// R0 stays provable via previous for exactly one confirmation
	advanceTo(t, f, p, r0, r1)
	require.Equal(r1, p.Current())
	require.Equal(r0, p.Previous())
	require.True(p.AcceptableRoot(r0))
	accepted, err = p.Prove(msgs[1].Hash(), proofs[1], 1)
	require.NoError(err)
	require.True(accepted)

	// after a second confirmation R0 is out of the grace window
	advanceTo(t, f, p, r1, r2)
	require.Equal(r1, p.Previous())
	require.False(p.AcceptableRoot(r0))
	accepted, err = p.Prove(msgs[2].Hash(), proofs[2], 2)
	require.NoError(err)
	require.False(accepted)
	require.Equal(StatusNone, p.Status(msgs[2].Hash()))
}

func TestProcessWrongDestination(t *testing.T) {
	require := require.New(t)

	msgs, tree := newTestMessages(t, 1)
	f := newTestFixture(t, tree.Root())
	p := f.newProcessor(t, NewHandlerRegistry())

	proof, err := tree.ProofOfLeaf(0)
	require.NoError(err)
	accepted, err := p.Prove(msgs[0].Hash(), proof, 0)
	require.NoError(err)
	require.True(accepted)

	stray := *msgs[0]
	stray.Destination = _testLocalDomain + 1
	_, _, err = p.Process(context.Background(), &stray)
	require.Equal(ErrWrongDestination, errors.Cause(err))
	require.Equal(uint32(0), p.LastProcessed())
}

func TestProcessInsufficientBudget(t *testing.T) {
	require := require.New(t)

	msgs, tree := newTestMessages(t, 1)
	f := newTestFixture(t, tree.Root())
	registry := NewHandlerRegistry()
	require.NoError(registry.Register(_testRecipient, echoHandler{}))
	p := f.newProcessor(t, registry)

	proof, err := tree.ProofOfLeaf(0)
	require.NoError(err)
	accepted, err := p.Prove(msgs[0].Hash(), proof, 0)
	require.NoError(err)
	require.True(accepted)

	// remaining time below process + reserve budget aborts with no state change
	deadline := f.clock.Now().Add(f.cfg.ProcessBudget + f.cfg.ReserveBudget - time.Millisecond)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	_, _, err = p.Process(ctx, msgs[0])
	require.Equal(ErrInsufficientBudget, errors.Cause(err))
	require.Equal(uint32(0), p.LastProcessed())
	require.Equal(StatusPending, p.Status(msgs[0].Hash()))

	// with the budget granted the same message processes fine
	ctx2, cancel2 := context.WithDeadline(context.Background(), f.clock.Now().Add(time.Hour))
	defer cancel2()
	ok, _, err := p.Process(ctx2, msgs[0])
	require.NoError(err)
	require.True(ok)
}

func TestDispatchIsolation(t *testing.T) {
	require := require.New(t)

	msgs, tree := newTestMessages(t, 3)
	f := newTestFixture(t, tree.Root())
	// a real clock so the dispatch timer can fire
	f.cfg.ProcessBudget = 50 * time.Millisecond
	f.cfg.ReserveBudget = 10 * time.Millisecond

	registry := NewHandlerRegistry()
	panicky := hash.Hash256b([]byte("panicky"))
	sleepy := hash.Hash256b([]byte("sleepy"))
	require.NoError(registry.Register(panicky, HandlerFunc(
		func(_ context.Context, _ *Message) ([]byte, error) {
			panic("recipient exploded")
		})))
	require.NoError(registry.Register(sleepy, HandlerFunc(
		func(ctx context.Context, _ *Message) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})))
	msgs[0].Recipient = panicky
	msgs[1].Recipient = sleepy
	// msgs[2] keeps a recipient nothing is registered for

	tree = crypto.NewTree()
	for _, msg := range msgs {
		require.NoError(tree.Add(msg.Hash()))
	}
	f.cfg.Current = tree.Root().Hex()
	p, err := NewProcessor(f.cfg, f.auth(), registry)
	require.NoError(err)

	for i, msg := range msgs {
		proof, err := tree.ProofOfLeaf(uint32(i))
		require.NoError(err)
		accepted, err := p.Prove(msg.Hash(), proof, uint32(i))
		require.NoError(err)
		require.True(accepted)
	}

	// a panicking handler is captured, not propagated
	ok, ret, err := p.Process(context.Background(), msgs[0])
	require.NoError(err)
	require.False(ok)
	require.Contains(string(ret), "recipient exploded")
	require.Equal(StatusProcessed, p.Status(msgs[0].Hash()))

	// a handler overrunning its budget is cut off, bookkeeping survives
	ok, _, err = p.Process(context.Background(), msgs[1])
	require.NoError(err)
	require.False(ok)
	require.Equal(uint32(2), p.LastProcessed())
	require.Equal(StatusProcessed, p.Status(msgs[1].Hash()))

	// an unknown recipient is a failed dispatch, not a protocol violation
	ok, _, err = p.Process(context.Background(), msgs[2])
	require.NoError(err)
	require.False(ok)
	require.Equal(uint32(3), p.LastProcessed())
}

func TestProveAndProcess(t *testing.T) {
	require := require.New(t)

	msgs, tree := newTestMessages(t, 2)
	f := newTestFixture(t, tree.Root())
	registry := NewHandlerRegistry()
	require.NoError(registry.Register(_testRecipient, echoHandler{}))
	p := f.newProcessor(t, registry)

	proof, err := tree.ProofOfLeaf(0)
	require.NoError(err)
	require.NoError(p.ProveAndProcess(context.Background(), msgs[0].Hash(), proof, 0, msgs[0]))
	require.Equal(uint32(1), p.LastProcessed())

	// a proof against the wrong index is rejected before any processing
	proof, err = tree.ProofOfLeaf(1)
	require.NoError(err)
	err = p.ProveAndProcess(context.Background(), msgs[1].Hash(), proof, 0, msgs[1])
	require.Equal(ErrProofRejected, errors.Cause(err))
	require.Equal(uint32(1), p.LastProcessed())
	require.Equal(StatusNone, p.Status(msgs[1].Hash()))
}

func TestProcessorPersistence(t *testing.T) {
	require := require.New(t)

	msgs, tree := newTestMessages(t, 2)
	f := newTestFixture(t, tree.Root())
	registry := NewHandlerRegistry()
	require.NoError(registry.Register(_testRecipient, echoHandler{}))
	kv := db.NewMemKVStore()
	p := f.newProcessor(t, registry, WithStore(NewStore(kv)))

	for i, msg := range msgs {
		proof, err := tree.ProofOfLeaf(uint32(i))
		require.NoError(err)
		accepted, err := p.Prove(msg.Hash(), proof, uint32(i))
		require.NoError(err)
		require.True(accepted)
	}
	ok, _, err := p.Process(context.Background(), msgs[0])
	require.NoError(err)
	require.True(ok)

	// a reloaded processor keeps the counter and statuses: no reprocess, no gap
	reloaded := f.newProcessor(t, registry, WithStore(NewStore(kv)))
	require.Equal(uint32(1), reloaded.LastProcessed())
	require.Equal(StatusProcessed, reloaded.Status(msgs[0].Hash()))
	require.Equal(StatusPending, reloaded.Status(msgs[1].Hash()))

	_, _, err = reloaded.Process(context.Background(), msgs[0])
	require.Equal(ErrNotPending, errors.Cause(err))
	ok, _, err = reloaded.Process(context.Background(), msgs[1])
	require.NoError(err)
	require.True(ok)
	require.Equal(uint32(2), reloaded.LastProcessed())
}

func TestProcessorFailPermanence(t *testing.T) {
	require := require.New(t)

	msgs, tree := newTestMessages(t, 2)
	r0 := tree.Root()
	rA := hash.Hash256b([]byte("RA"))
	rB := hash.Hash256b([]byte("RB"))
	f := newTestFixture(t, r0)
	registry := NewHandlerRegistry()
	require.NoError(registry.Register(_testRecipient, echoHandler{}))
	p := f.newProcessor(t, registry)

	proof, err := tree.ProofOfLeaf(0)
	require.NoError(err)
	accepted, err := p.Prove(msgs[0].Hash(), proof, 0)
	require.NoError(err)
	require.True(accepted)

	require.NoError(p.DoubleUpdate(r0, [2]hash.Hash256{rA, rB}, [2][]byte{f.sign(t, r0, rA), f.sign(t, r0, rB)}))
	require.True(p.Failed())

	// no proving or processing on a failed replica, even for pending messages
	proof, err = tree.ProofOfLeaf(1)
	require.NoError(err)
	_, err = p.Prove(msgs[1].Hash(), proof, 1)
	require.Equal(ErrReplicaFailed, errors.Cause(err))
	_, _, err = p.Process(context.Background(), msgs[0])
	require.Equal(ErrReplicaFailed, errors.Cause(err))
	require.Equal(uint32(0), p.LastProcessed())
	require.Equal(StatusPending, p.Status(msgs[0].Hash()))
}

// TestReplicaLifecycleScenario walks the full optimistic relay flow end to end
func TestReplicaLifecycleScenario(t *testing.T) {
	require := require.New(t)

	msgs, tree := newTestMessages(t, 2)
	r0 := tree.Root()
	r1 := hash.Hash256b([]byte("R1"))
	r2 := hash.Hash256b([]byte("R2"))
	f := newTestFixture(t, r0)
	registry := NewHandlerRegistry()
	require.NoError(registry.Register(_testRecipient, echoHandler{}))
	p := f.newProcessor(t, registry)

	// queue empty, current = R0; update(R0, R1) succeeds
	require.NoError(p.Update(r0, r1, f.sign(t, r0, r1)))

	// confirm before the deadline fails
	require.Equal(ErrNotYetDue, errors.Cause(p.Confirm()))

	// after the delay, confirm promotes R1 and retains R0 as previous
	f.clock.Add(_testDelay)
	require.NoError(p.Confirm())
	require.Equal(r1, p.Current())
	require.Equal(r0, p.Previous())

	// a leaf proven against R0 is still accepted
	proof, err := tree.ProofOfLeaf(0)
	require.NoError(err)
	accepted, err := p.Prove(msgs[0].Hash(), proof, 0)
	require.NoError(err)
	require.True(accepted)

	// after a second confirmed root, R0 leaves the grace window
	advanceTo(t, f, p, r1, r2)
	proof, err = tree.ProofOfLeaf(1)
	require.NoError(err)
	accepted, err = p.Prove(msgs[1].Hash(), proof, 1)
	require.NoError(err)
	require.False(accepted)
}
