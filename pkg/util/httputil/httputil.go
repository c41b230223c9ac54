// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package httputil

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"
)

const (
	_connectionCount = 400
	_readTimeout     = 35 * time.Second
	_writeTimeout    = 35 * time.Second
	_idleTimeout     = 120 * time.Second
)

type (
	// ServerOption is a server option to apply on http.Server
	ServerOption func(*http.Server)

	serverConfig struct {
		ReadTimeout       time.Duration
		ReadHeaderTimeout time.Duration
		WriteTimeout      time.Duration
		IdleTimeout       time.Duration
	}
)

// DefaultServerConfig is the default server config
var DefaultServerConfig = serverConfig{
	ReadTimeout:       _readTimeout,
	ReadHeaderTimeout: _readTimeout,
	WriteTimeout:      _writeTimeout,
	IdleTimeout:       _idleTimeout,
}

// ReadHeaderTimeout sets the amount of time allowed to read request headers
func ReadHeaderTimeout(h time.Duration) ServerOption {
	return func(svr *http.Server) {
		svr.ReadHeaderTimeout = h
	}
}

// NewServer creates a HTTP server with time out settings.
func NewServer(addr string, handler http.Handler, opts ...ServerOption) http.Server {
	svr := http.Server{
		ReadTimeout:       DefaultServerConfig.ReadTimeout,
		ReadHeaderTimeout: DefaultServerConfig.ReadHeaderTimeout,
		WriteTimeout:      DefaultServerConfig.WriteTimeout,
		IdleTimeout:       DefaultServerConfig.IdleTimeout,
		Addr:              addr,
		Handler:           handler,
	}
	for _, opt := range opts {
		opt(&svr)
	}
	return svr
}

// LimitListener returns a listener that accepts at most a fixed number of simultaneous connections
func LimitListener(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return netutil.LimitListener(ln, _connectionCount), nil
}
