// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package routine

import (
	"context"
	"time"

	"github.com/facebookgo/clock"

	"github.com/rollquaye/hyperlane-monorepo/pkg/lifecycle"
)

var _ lifecycle.StartStopper = (*RecurringTask)(nil)

// Task is the function to run on a schedule
type Task func()

// RecurringTaskOption is the option to set the recurring task
type RecurringTaskOption func(*RecurringTask)

// WithClock sets the clock the task ticks on
func WithClock(c clock.Clock) RecurringTaskOption {
	return func(t *RecurringTask) {
		t.clock = c
	}
}

// RecurringTask runs a task on a fixed interval
type RecurringTask struct {
	task     Task
	interval time.Duration
	clock    clock.Clock
	ticker   *clock.Ticker
	done     chan struct{}
}

// NewRecurringTask creates an instance of RecurringTask
func NewRecurringTask(task Task, interval time.Duration, opts ...RecurringTaskOption) *RecurringTask {
	rt := &RecurringTask{
		task:     task,
		interval: interval,
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Start starts the ticker
func (t *RecurringTask) Start(_ context.Context) error {
	t.ticker = t.clock.Ticker(t.interval)
	t.done = make(chan struct{})
	ready := make(chan struct{})
	go func() {
		close(ready)
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				t.task()
			}
		}
	}()
	<-ready
	return nil
}

// Stop stops the ticker
func (t *RecurringTask) Stop(_ context.Context) error {
	if t.ticker != nil {
		t.ticker.Stop()
	}
	if t.done != nil {
		close(t.done)
	}
	return nil
}
