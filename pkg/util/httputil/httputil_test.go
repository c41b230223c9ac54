// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package httputil

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	require := require.New(t)

	var handler http.Handler
	svr := NewServer(":9999", handler, ReadHeaderTimeout(2*time.Second))
	require.Equal(2*time.Second, svr.ReadHeaderTimeout)
	require.Equal(DefaultServerConfig.ReadTimeout, svr.ReadTimeout)
	require.Equal(DefaultServerConfig.WriteTimeout, svr.WriteTimeout)
	require.Equal(DefaultServerConfig.IdleTimeout, svr.IdleTimeout)
	require.Equal(":9999", svr.Addr)
}

func TestLimitListener(t *testing.T) {
	require := require.New(t)

	_, err := LimitListener("not-an-address")
	require.Error(err)

	ln, err := LimitListener("127.0.0.1:0")
	require.NoError(err)
	require.NoError(ln.Close())
}
