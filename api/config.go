// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package api

// Config is the config for the inspection server
type Config struct {
	// Port is the port the inspection server listens on
	Port int `yaml:"port"`
}

// DefaultConfig is the default config
var DefaultConfig = Config{
	Port: 14014,
}
