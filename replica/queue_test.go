// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package replica

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
)

func TestQueueFIFO(t *testing.T) {
	require := require.New(t)

	q := NewQueue()
	require.Equal(0, q.Length())
	_, err := q.Peek()
	require.Equal(ErrEmptyQueue, err)
	_, err = q.Dequeue()
	require.Equal(ErrEmptyQueue, err)
	_, err = q.LastItem()
	require.Equal(ErrEmptyQueue, err)

	r1 := hash.Hash256b([]byte("r1"))
	r2 := hash.Hash256b([]byte("r2"))
	r3 := hash.Hash256b([]byte("r3"))
	q.Enqueue(r1)
	q.Enqueue(r2)
	q.Enqueue(r3)
	require.Equal(3, q.Length())

	head, err := q.Peek()
	require.NoError(err)
	require.Equal(r1, head)
	tail, err := q.LastItem()
	require.NoError(err)
	require.Equal(r3, tail)
	require.True(q.Contains(r2))
	require.False(q.Contains(hash.Hash256b([]byte("r4"))))
	require.Equal([]hash.Hash256{r1, r2, r3}, q.Items())

	for _, want := range []hash.Hash256{r1, r2, r3} {
		got, err := q.Dequeue()
		require.NoError(err)
		require.Equal(want, got)
	}
	require.Equal(0, q.Length())
}

func TestQueueRestoreHead(t *testing.T) {
	require := require.New(t)

	q := NewQueue()
	r1 := hash.Hash256b([]byte("r1"))
	r2 := hash.Hash256b([]byte("r2"))
	r3 := hash.Hash256b([]byte("r3"))
	q.Enqueue(r1)
	q.Enqueue(r2)
	q.Enqueue(r3)

	a, _ := q.Dequeue()
	b, _ := q.Dequeue()
	q.restoreHead([]hash.Hash256{a, b})
	require.Equal([]hash.Hash256{r1, r2, r3}, q.Items())

	q.dropTail()
	require.Equal([]hash.Hash256{r1, r2}, q.Items())
}
