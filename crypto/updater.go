// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package crypto

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
	"github.com/rollquaye/hyperlane-monorepo/pkg/util/byteutil"
)

const _signatureLength = 65

// _ethSignedMessagePrefix makes the digest compatible with eth_sign style signers
var _ethSignedMessagePrefix = []byte("\x19Ethereum Signed Message:\n32")

// Authenticator verifies that a root transition was signed by the authorized
// updater of the remote ledger.
type Authenticator interface {
	Verify(oldRoot, newRoot hash.Hash256, sig []byte) bool
}

// HomeDomainHash derives the signing domain separator of the remote ledger
func HomeDomainHash(remoteDomain uint32) hash.Hash256 {
	return hash.Hash256b(byteutil.Uint32ToBytesBigEndian(remoteDomain), []byte("REPLICA"))
}

func updateDigest(domainHash, oldRoot, newRoot hash.Hash256) hash.Hash256 {
	inner := hash.Hash256b(domainHash[:], oldRoot[:], newRoot[:])
	return hash.Hash256b(_ethSignedMessagePrefix, inner[:])
}

// ECDSAAuthenticator verifies secp256k1 signatures against the updater address
type ECDSAAuthenticator struct {
	domainHash hash.Hash256
	updater    common.Address
}

// NewECDSAAuthenticator creates an authenticator for the given remote domain and updater address
func NewECDSAAuthenticator(remoteDomain uint32, updater common.Address) *ECDSAAuthenticator {
	return &ECDSAAuthenticator{
		domainHash: HomeDomainHash(remoteDomain),
		updater:    updater,
	}
}

// Verify recovers the signer of the (oldRoot, newRoot) transition and compares
// it with the updater address. Malformed signatures simply verify false.
func (a *ECDSAAuthenticator) Verify(oldRoot, newRoot hash.Hash256, sig []byte) bool {
	if len(sig) != _signatureLength {
		return false
	}
	normalized := make([]byte, _signatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	digest := updateDigest(a.domainHash, oldRoot, newRoot)
	pub, err := ethcrypto.SigToPub(digest[:], normalized)
	if err != nil {
		return false
	}
	return ethcrypto.PubkeyToAddress(*pub) == a.updater
}

// Updater signs root transitions. It exists for provers, tooling and tests;
// the replica itself only ever verifies.
type Updater struct {
	key        *ecdsa.PrivateKey
	domainHash hash.Hash256
}

// NewUpdater creates an updater signing under the given remote domain
func NewUpdater(remoteDomain uint32, key *ecdsa.PrivateKey) *Updater {
	return &Updater{
		key:        key,
		domainHash: HomeDomainHash(remoteDomain),
	}
}

// Address returns the updater's address
func (u *Updater) Address() common.Address {
	return ethcrypto.PubkeyToAddress(u.key.PublicKey)
}

// Sign signs the (oldRoot, newRoot) transition
func (u *Updater) Sign(oldRoot, newRoot hash.Hash256) ([]byte, error) {
	digest := updateDigest(u.domainHash, oldRoot, newRoot)
	return ethcrypto.Sign(digest[:], u.key)
}
