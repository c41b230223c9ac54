// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package crypto

import (
	"github.com/pkg/errors"

	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
)

const (
	// TreeDepth is the fixed depth of the message tree, supporting up to 2^32 leaves
	TreeDepth = 32
)

var (
	// ErrTreeFull indicates the tree has reached its maximum number of leaves
	ErrTreeFull = errors.New("merkle tree is full")
	// ErrIndexOutOfRange indicates the leaf index does not exist in the tree
	ErrIndexOutOfRange = errors.New("leaf index out of range")

	// _zeroHashes[i] is the root of an empty subtree of height i
	_zeroHashes [TreeDepth]hash.Hash256
)

func init() {
	z := hash.ZeroHash256
	for i := 0; i < TreeDepth; i++ {
		_zeroHashes[i] = z
		z = hash.Hash256b(z[:], z[:])
	}
}

// Proof is the sibling path of a leaf, lowest level first
type Proof [TreeDepth]hash.Hash256

// BranchRoot recomputes the root commitment from a leaf, its sibling path and
// its index. Bit i of index gives the leaf's position at level i: a set bit
// means the running hash is the right child at that level.
func BranchRoot(leaf hash.Hash256, proof Proof, index uint32) hash.Hash256 {
	current := leaf
	for i := 0; i < TreeDepth; i++ {
		sibling := proof[i]
		if (index>>uint(i))&1 == 1 {
			current = hash.Hash256b(sibling[:], current[:])
		} else {
			current = hash.Hash256b(current[:], sibling[:])
		}
	}
	return current
}

// Tree is a fixed-depth, left-packed merkle tree over message leaves. Absent
// right subtrees hash as zero subtrees, so the root is defined for any count.
// It backs proof generation for provers and tests; verification alone only
// needs BranchRoot.
type Tree struct {
	leaves []hash.Hash256
}

// NewTree creates an empty tree of depth TreeDepth
func NewTree() *Tree {
	return &Tree{}
}

// Count returns the number of leaves inserted so far
func (t *Tree) Count() uint64 { return uint64(len(t.leaves)) }

// Add appends a leaf at the next free index
func (t *Tree) Add(leaf hash.Hash256) error {
	if uint64(len(t.leaves)) == uint64(1)<<TreeDepth {
		return ErrTreeFull
	}
	t.leaves = append(t.leaves, leaf)
	return nil
}

// Root returns the depth-32 root over the current leaves
func (t *Tree) Root() hash.Hash256 {
	nodes := make([]hash.Hash256, len(t.leaves))
	copy(nodes, t.leaves)
	for level := 0; level < TreeDepth; level++ {
		if len(nodes) == 0 {
			nodes = append(nodes, _zeroHashes[level])
		}
		if len(nodes)%2 == 1 {
			nodes = append(nodes, _zeroHashes[level])
		}
		next := make([]hash.Hash256, len(nodes)/2)
		for i := range next {
			next[i] = hash.Hash256b(nodes[2*i][:], nodes[2*i+1][:])
		}
		nodes = next
	}
	return nodes[0]
}

// ProofOfLeaf returns the sibling path of the leaf at the given index
func (t *Tree) ProofOfLeaf(index uint32) (Proof, error) {
	var proof Proof
	if uint64(index) >= uint64(len(t.leaves)) {
		return proof, errors.Wrapf(ErrIndexOutOfRange, "index = %d, count = %d", index, len(t.leaves))
	}
	nodes := make([]hash.Hash256, len(t.leaves))
	copy(nodes, t.leaves)
	idx := int(index)
	for level := 0; level < TreeDepth; level++ {
		sibling := idx ^ 1
		if sibling < len(nodes) {
			proof[level] = nodes[sibling]
		} else {
			proof[level] = _zeroHashes[level]
		}
		if len(nodes)%2 == 1 {
			nodes = append(nodes, _zeroHashes[level])
		}
		next := make([]hash.Hash256, len(nodes)/2)
		for i := range next {
			next[i] = hash.Hash256b(nodes[2*i][:], nodes[2*i+1][:])
		}
		nodes = next
		idx >>= 1
	}
	return proof, nil
}
