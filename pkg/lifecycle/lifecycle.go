// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package lifecycle

import "context"

type (
	// Starter is the interface with Start
	Starter interface {
		Start(context.Context) error
	}

	// Stopper is the interface with Stop
	Stopper interface {
		Stop(context.Context) error
	}

	// StartStopper is the interface with both Start and Stop
	StartStopper interface {
		Starter
		Stopper
	}

	// Lifecycle manages a list of models with Start/Stop
	Lifecycle struct {
		models []interface{}
	}
)

// Add adds a model into the lifecycle
func (lc *Lifecycle) Add(m interface{}) { lc.models = append(lc.models, m) }

// AddModels adds multiple models into the lifecycle
func (lc *Lifecycle) AddModels(m ...interface{}) { lc.models = append(lc.models, m...) }

// OnStart runs models' Start function in added order, aborting on the first error
func (lc *Lifecycle) OnStart(ctx context.Context) error {
	for _, m := range lc.models {
		if starter, ok := m.(Starter); ok {
			if err := starter.Start(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnStop runs models' Stop function in reverse order, aborting on the first error
func (lc *Lifecycle) OnStop(ctx context.Context) error {
	for i := len(lc.models) - 1; i >= 0; i-- {
		if stopper, ok := lc.models[i].(Stopper); ok {
			if err := stopper.Stop(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
