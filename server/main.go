// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Usage:
//   make build
//   ./bin/server -config=./config.yaml

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rollquaye/hyperlane-monorepo/api"
	"github.com/rollquaye/hyperlane-monorepo/config"
	"github.com/rollquaye/hyperlane-monorepo/crypto"
	"github.com/rollquaye/hyperlane-monorepo/db"
	"github.com/rollquaye/hyperlane-monorepo/pkg/lifecycle"
	"github.com/rollquaye/hyperlane-monorepo/pkg/log"
	"github.com/rollquaye/hyperlane-monorepo/pkg/routine"
	"github.com/rollquaye/hyperlane-monorepo/replica"
)

const _confirmInterval = 10 * time.Second

var _configPath = flag.String("config", "./config.yaml", "specify configuration file path")

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: server -config=[string]\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
}

func main() {
	cfg, err := config.New([]string{*_configPath})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if err := log.InitLoggers(cfg.Log, cfg.SubLogs); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init loggers:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	kv := db.NewBoltDB(cfg.DB)
	if err := kv.Start(ctx); err != nil {
		log.L().Fatal("Failed to open the state database.", zap.Error(err), zap.String("path", cfg.DB.DbPath))
	}

	auth := crypto.NewECDSAAuthenticator(cfg.Replica.RemoteDomain, common.HexToAddress(cfg.Replica.Updater))
	// recipient handlers are registered here before the processor takes calls
	registry := replica.NewHandlerRegistry()
	processor, err := replica.NewProcessor(cfg.Replica, auth, registry, replica.WithStore(replica.NewStore(kv)))
	if err != nil {
		log.L().Fatal("Failed to create the processor.", zap.Error(err))
	}

	confirmer := routine.NewRecurringTask(func() {
		switch err := errors.Cause(processor.Confirm()); err {
		case nil, replica.ErrEmptyQueue, replica.ErrNotYetDue:
		default:
			log.L().Error("Failed to confirm pending roots.", zap.Error(err))
		}
	}, _confirmInterval)

	var lc lifecycle.Lifecycle
	lc.AddModels(confirmer, api.NewServer(cfg.API, processor))
	if err := lc.OnStart(ctx); err != nil {
		log.L().Fatal("Failed to start the service.", zap.Error(err))
	}
	log.L().Info("Replica service started.",
		zap.Uint32("localDomain", processor.LocalDomain()),
		zap.Uint32("remoteDomain", processor.RemoteDomain()),
		zap.String("current", processor.Current().Hex()))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.L().Info("Shutting down.")
	if err := lc.OnStop(ctx); err != nil {
		log.L().Error("Failed to stop the service.", zap.Error(err))
	}
	if err := kv.Stop(ctx); err != nil {
		log.L().Error("Failed to close the state database.", zap.Error(err))
	}
}
