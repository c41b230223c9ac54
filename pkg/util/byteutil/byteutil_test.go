// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package byteutil

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestUint32BigEndian(t *testing.T) {
	require := require.New(t)

	b := Uint32ToBytesBigEndian(31415926)
	require.Equal([]byte{0x1, 0xdf, 0x5e, 0x76}, b)
	require.Equal(uint32(31415926), BytesToUint32BigEndian(b))
}

func TestUint64BigEndian(t *testing.T) {
	require := require.New(t)

	b := Uint64ToBytesBigEndian(1844674407370955161)
	require.Equal([]byte{0x19, 0x99, 0x99, 0x99, 0x99, 0x99, 0x99, 0x99}, b)
	require.Equal(uint64(1844674407370955161), BytesToUint64BigEndian(b))
}

func TestMust(t *testing.T) {
	require := require.New(t)

	b := []byte{0x19}
	require.Equal(b, Must(b, nil))
	require.Panics(func() { Must(b, errors.New("no output")) })
}
