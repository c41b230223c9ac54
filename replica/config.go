// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package replica

import (
	"encoding/hex"
	"time"

	"github.com/pkg/errors"

	"github.com/rollquaye/hyperlane-monorepo/pkg/hash"
)

// Config is the config for a replica
type Config struct {
	// LocalDomain is the domain this replica processes messages for
	LocalDomain uint32 `yaml:"localDomain"`
	// RemoteDomain is the domain of the mirrored remote ledger
	RemoteDomain uint32 `yaml:"remoteDomain"`
	// Updater is the hex address of the authorized root signer
	Updater string `yaml:"updater"`
	// Current is the hex of the genesis committed root, all-zero if empty
	Current string `yaml:"current"`
	// OptimisticDelay is the waiting period before a submitted root may be confirmed
	OptimisticDelay time.Duration `yaml:"optimisticDelay"`
	// ProcessBudget caps the execution time granted to a recipient handler
	ProcessBudget time.Duration `yaml:"processBudget"`
	// ReserveBudget is the margin kept for the replica's own bookkeeping around a dispatch
	ReserveBudget time.Duration `yaml:"reserveBudget"`
}

// DefaultConfig returns the default config
var DefaultConfig = Config{
	OptimisticDelay: 30 * time.Minute,
	ProcessBudget:   2 * time.Second,
	ReserveBudget:   500 * time.Millisecond,
}

// GenesisRoot parses the configured genesis root
func (cfg Config) GenesisRoot() (hash.Hash256, error) {
	if cfg.Current == "" {
		return hash.ZeroHash256, nil
	}
	b, err := hex.DecodeString(cfg.Current)
	if err != nil {
		return hash.ZeroHash256, errors.Wrap(err, "invalid genesis root")
	}
	if len(b) != hash.HashSize {
		return hash.ZeroHash256, errors.Errorf("invalid genesis root length %d", len(b))
	}
	return hash.BytesToHash256(b), nil
}

// Validate checks the replica config
func (cfg Config) Validate() error {
	if cfg.LocalDomain == 0 {
		return errors.New("local domain is not set")
	}
	if cfg.RemoteDomain == 0 {
		return errors.New("remote domain is not set")
	}
	if cfg.LocalDomain == cfg.RemoteDomain {
		return errors.New("local and remote domain must differ")
	}
	if cfg.OptimisticDelay <= 0 {
		return errors.New("optimistic delay must be positive")
	}
	if cfg.ProcessBudget <= 0 || cfg.ReserveBudget <= 0 {
		return errors.New("process and reserve budget must be positive")
	}
	if _, err := cfg.GenesisRoot(); err != nil {
		return err
	}
	return nil
}
