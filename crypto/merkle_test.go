// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package crypto

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
)

func TestBranchRootRoundTrip(t *testing.T) {
	require := require.New(t)

	tree := NewTree()
	leaves := make([]hash.Hash256, 7)
	for i := range leaves {
		leaves[i] = hash.Hash256b([]byte(fmt.Sprintf("leaf-%d", i)))
		require.NoError(tree.Add(leaves[i]))
	}
	require.Equal(uint64(7), tree.Count())
	root := tree.Root()

	for i := range leaves {
		proof, err := tree.ProofOfLeaf(uint32(i))
		require.NoError(err)
		require.Equal(root, BranchRoot(leaves[i], proof, uint32(i)))
	}
}

func TestBranchRootRejectsCorruption(t *testing.T) {
	require := require.New(t)

	tree := NewTree()
	leaves := make([]hash.Hash256, 5)
	for i := range leaves {
		leaves[i] = hash.Hash256b([]byte(fmt.Sprintf("message %d", i)))
		require.NoError(tree.Add(leaves[i]))
	}
	root := tree.Root()
	proof, err := tree.ProofOfLeaf(3)
	require.NoError(err)

	// single-bit corruption of the leaf
	corrupted := leaves[3]
	corrupted[0] ^= 0x01
	require.NotEqual(root, BranchRoot(corrupted, proof, 3))

	// single-bit corruption of any proof element
	for i := 0; i < TreeDepth; i++ {
		badProof := proof
		badProof[i][31] ^= 0x80
		require.NotEqual(root, BranchRoot(leaves[3], badProof, 3))
	}

	// wrong index
	require.NotEqual(root, BranchRoot(leaves[3], proof, 2))
	require.NotEqual(root, BranchRoot(leaves[3], proof, 7))
}

func TestTreeRootGrowsDeterministically(t *testing.T) {
	require := require.New(t)

	a, b := NewTree(), NewTree()
	for i := 0; i < 4; i++ {
		leaf := hash.Hash256b([]byte{byte(i)})
		require.NoError(a.Add(leaf))
		require.NoError(b.Add(leaf))
		require.Equal(a.Root(), b.Root())
	}
	require.NoError(a.Add(hash.Hash256b([]byte("divergence"))))
	require.NotEqual(a.Root(), b.Root())
}

func TestProofOfLeafOutOfRange(t *testing.T) {
	require := require.New(t)

	tree := NewTree()
	_, err := tree.ProofOfLeaf(0)
	require.ErrorIs(err, ErrIndexOutOfRange)

	require.NoError(tree.Add(hash.Hash256b([]byte("only"))))
	_, err = tree.ProofOfLeaf(1)
	require.ErrorIs(err, ErrIndexOutOfRange)
}
