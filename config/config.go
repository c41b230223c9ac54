// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package config

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	uconfig "go.uber.org/config"

	"github.com/rollquaye/hyperlane-monorepo/api"
	"github.com/rollquaye/hyperlane-monorepo/db"
	"github.com/rollquaye/hyperlane-monorepo/pkg/log"
	"github.com/rollquaye/hyperlane-monorepo/replica"
)

// IMPORTANT: to define a config, add a field or a new config type to the existing config types. In addition, provide
// the default value in Default var.

var (
	// Default is the default config
	Default = Config{
		SubLogs: make(map[string]log.GlobalConfig),
		Replica: replica.DefaultConfig,
		DB: db.Config{
			DbPath:     "/var/data/replica.db",
			NumRetries: 3,
		},
		API: api.DefaultConfig,
	}

	// ErrInvalidCfg indicates the invalid config value
	ErrInvalidCfg = errors.New("invalid config value")

	// Validates is the collection of all validation funcs
	Validates = []Validate{
		ValidateReplica,
		ValidateDB,
		ValidateAPI,
	}
)

type (
	// Config is the root config of the relay service
	Config struct {
		Replica replica.Config              `yaml:"replica"`
		DB      db.Config                   `yaml:"db"`
		API     api.Config                  `yaml:"api"`
		Log     log.GlobalConfig            `yaml:"log"`
		SubLogs map[string]log.GlobalConfig `yaml:"subLogs"`
	}

	// Validate is the interface of validating the config
	Validate func(Config) error
)

// New creates a config instance. It merges the default values with the config
// files in order, so the config file on a latter path overrides the earlier
// ones. By default the config passes all the validations.
func New(configPaths []string, validates ...Validate) (Config, error) {
	opts := make([]uconfig.YAMLOption, 0)
	opts = append(opts, uconfig.Static(Default))
	opts = append(opts, uconfig.Expand(os.LookupEnv))
	for _, path := range configPaths {
		if path != "" {
			opts = append(opts, uconfig.File(path))
		}
	}
	yaml, err := uconfig.NewYAML(opts...)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to init config")
	}

	var cfg Config
	if err := yaml.Get(uconfig.Root).Populate(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal YAML config to struct")
	}

	if len(validates) == 0 {
		validates = Validates
	}
	for _, validate := range validates {
		if err := validate(cfg); err != nil {
			return Config{}, errors.Wrap(err, "failed to validate config")
		}
	}
	return cfg, nil
}

// ValidateReplica validates the replica protocol parameters
func ValidateReplica(cfg Config) error {
	if err := cfg.Replica.Validate(); err != nil {
		return errors.Wrap(ErrInvalidCfg, err.Error())
	}
	if cfg.Replica.Updater == "" {
		return errors.Wrap(ErrInvalidCfg, "updater address is not set")
	}
	if !common.IsHexAddress(cfg.Replica.Updater) {
		return errors.Wrapf(ErrInvalidCfg, "invalid updater address %s", cfg.Replica.Updater)
	}
	return nil
}

// ValidateDB validates the database configs
func ValidateDB(cfg Config) error {
	if cfg.DB.DbPath == "" {
		return errors.Wrap(ErrInvalidCfg, "db path is not set")
	}
	return nil
}

// ValidateAPI validates the api configs
func ValidateAPI(cfg Config) error {
	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		return errors.Wrapf(ErrInvalidCfg, "invalid api port %d", cfg.API.Port)
	}
	return nil
}
