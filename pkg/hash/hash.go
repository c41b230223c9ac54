// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package hash

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// HashSize defines the size of hash
	HashSize = 32
)

var (
	// ZeroHash256 is 32-bytes of all zero
	ZeroHash256 = Hash256{}
)

// Hash256 is a 32-byte hash, used for commitment roots and message leaves
type Hash256 [HashSize]byte

// Hash256b returns the 32-byte keccak256 hash of the concatenated byte slices
func Hash256b(data ...[]byte) Hash256 {
	var h Hash256
	copy(h[:], crypto.Keccak256(data...))
	return h
}

// BytesToHash256 copies the byte slice into a Hash256
func BytesToHash256(b []byte) Hash256 {
	var h Hash256
	if len(b) > HashSize {
		b = b[len(b)-HashSize:]
	}
	copy(h[HashSize-len(b):], b)
	return h
}

// Hex returns the hex string representation of the hash
func (h Hash256) Hex() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the underlying bytes
func (h Hash256) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}
