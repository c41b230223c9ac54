// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package fileutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollquaye/hyperlane-monorepo/pkg/util/fileutil"
	"github.com/rollquaye/hyperlane-monorepo/testutil"
)

func TestFileExists(t *testing.T) {
	require := require.New(t)

	path, err := testutil.PathOfTempFile("exists")
	require.NoError(err)
	defer testutil.CleanupPath(path)
	require.True(fileutil.FileExists(path))
	testutil.CleanupPath(path)
	require.False(fileutil.FileExists(path))
}
