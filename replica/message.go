// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package replica

import (
	"github.com/pkg/errors"

	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
	"github.com/rollquaye/hyperlane-monorepo/pkg/util/byteutil"
)

// wire layout: origin(4) | sender(32) | sequence(4) | destination(4) | recipient(32) | body
const _headerLength = 4 + hash.HashSize + 4 + 4 + hash.HashSize

// Message is a single relayed payload committed into the remote ledger's tree
type Message struct {
	// Origin is the domain the message was dispatched from
	Origin uint32
	// Sender identifies the dispatching party on the origin domain
	Sender hash.Hash256
	// Sequence is the message's position in the destination's processing order
	Sequence uint32
	// Destination is the domain the message must be processed on
	Destination uint32
	// Recipient identifies the handler the payload is dispatched to
	Recipient hash.Hash256
	// Body is the opaque payload handed to the recipient
	Body []byte
}

// Encode packs the message into its canonical big-endian wire form
func (m *Message) Encode() []byte {
	b := make([]byte, 0, _headerLength+len(m.Body))
	b = append(b, byteutil.Uint32ToBytesBigEndian(m.Origin)...)
	b = append(b, m.Sender[:]...)
	b = append(b, byteutil.Uint32ToBytesBigEndian(m.Sequence)...)
	b = append(b, byteutil.Uint32ToBytesBigEndian(m.Destination)...)
	b = append(b, m.Recipient[:]...)
	b = append(b, m.Body...)
	return b
}

// DecodeMessage unpacks a message from its wire form
func DecodeMessage(b []byte) (*Message, error) {
	if len(b) < _headerLength {
		return nil, errors.Wrapf(ErrMalformedMessage, "length = %d, want >= %d", len(b), _headerLength)
	}
	m := &Message{}
	m.Origin = byteutil.BytesToUint32BigEndian(b[0:4])
	m.Sender = hash.BytesToHash256(b[4:36])
	m.Sequence = byteutil.BytesToUint32BigEndian(b[36:40])
	m.Destination = byteutil.BytesToUint32BigEndian(b[40:44])
	m.Recipient = hash.BytesToHash256(b[44:76])
	m.Body = make([]byte, len(b)-_headerLength)
	copy(m.Body, b[_headerLength:])
	return m, nil
}

// Hash returns the keccak256 hash of the wire form. It is both the message's
// identity key and its merkle leaf.
func (m *Message) Hash() hash.Hash256 {
	return hash.Hash256b(m.Encode())
}
