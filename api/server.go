// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package api exposes a read-only HTTP inspection surface over a running
// replica. Every endpoint reports state; none of them mutates it.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
	"github.com/rollquaye/hyperlane-monorepo/pkg/lifecycle"
	"github.com/rollquaye/hyperlane-monorepo/pkg/log"
	"github.com/rollquaye/hyperlane-monorepo/pkg/util/httputil"
	"github.com/rollquaye/hyperlane-monorepo/replica"
)

type (
	// Server is the read-only inspection server
	Server struct {
		cfg       Config
		processor *replica.Processor
		server    http.Server
		readiness *lifecycle.Readiness
	}

	statusResponse struct {
		LocalDomain   uint32 `json:"localDomain"`
		RemoteDomain  uint32 `json:"remoteDomain"`
		Current       string `json:"current"`
		Previous      string `json:"previous"`
		Failed        bool   `json:"failed"`
		LastProcessed uint32 `json:"lastProcessed"`
		QueueLength   int    `json:"queueLength"`
		QueueEnd      string `json:"queueEnd,omitempty"`
	}

	pendingRoot struct {
		Root      string    `json:"root"`
		ConfirmAt time.Time `json:"confirmAt"`
	}

	messageResponse struct {
		Leaf   string `json:"leaf"`
		Status string `json:"status"`
	}
)

// NewServer creates an inspection server over the processor
func NewServer(cfg Config, p *replica.Processor) *Server {
	s := &Server{
		cfg:       cfg,
		processor: p,
		readiness: &lifecycle.Readiness{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/replica/status", s.handleStatus)
	mux.HandleFunc("/replica/pending", s.handlePending)
	mux.HandleFunc("/replica/messages/", s.handleMessage)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !s.readiness.IsReady() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	s.server = httputil.NewServer(fmt.Sprintf(":%d", cfg.Port), mux)
	return s
}

// Start starts serving on the configured port
func (s *Server) Start(_ context.Context) error {
	ln, err := httputil.LimitListener(s.server.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.L().Error("Inspection server stopped.", zap.Error(err))
		}
	}()
	log.L().Info("Inspection server started.", zap.String("addr", s.server.Addr))
	return s.readiness.TurnOn()
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	if err := s.readiness.TurnOff(); err != nil {
		return err
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := statusResponse{
		LocalDomain:   s.processor.LocalDomain(),
		RemoteDomain:  s.processor.RemoteDomain(),
		Current:       s.processor.Current().Hex(),
		Previous:      s.processor.Previous().Hex(),
		Failed:        s.processor.Failed(),
		LastProcessed: s.processor.LastProcessed(),
		QueueLength:   s.processor.QueueLength(),
	}
	if end, ok := s.processor.QueueEnd(); ok {
		resp.QueueEnd = end.Hex()
	}
	writeJSON(w, resp)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	roots := s.processor.PendingRoots()
	resp := make([]pendingRoot, 0, len(roots))
	for _, root := range roots {
		deadline, _ := s.processor.ConfirmAt(root)
		resp = append(resp, pendingRoot{Root: root.Hex(), ConfirmAt: deadline})
	}
	writeJSON(w, resp)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/replica/messages/")
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != hash.HashSize {
		http.Error(w, "leaf must be a 32-byte hex string", http.StatusBadRequest)
		return
	}
	leaf := hash.BytesToHash256(b)
	writeJSON(w, messageResponse{
		Leaf:   leaf.Hex(),
		Status: s.processor.Status(leaf).String(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.L().Warn("Failed to send http response.", zap.Error(err))
	}
}
