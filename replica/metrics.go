// Copyright (c) 2024 Rollquaye
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package replica

import "github.com/prometheus/client_golang/prometheus"

var (
	_processedMtc = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replica_processed_messages_total",
			Help: "Messages marked processed, labelled by dispatch outcome",
		},
		[]string{"outcome"},
	)
	_confirmedRootsMtc = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "replica_confirmed_roots_total",
			Help: "Roots promoted to current, fast-forwarded roots included",
		},
	)
	_pendingRootsMtc = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "replica_pending_roots",
			Help: "Roots waiting in the confirmation queue",
		},
	)
	_failedMtc = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "replica_failed",
			Help: "1 once the replica has permanently failed",
		},
	)
)

func init() {
	prometheus.MustRegister(_processedMtc)
	prometheus.MustRegister(_confirmedRootsMtc)
	prometheus.MustRegister(_pendingRootsMtc)
	prometheus.MustRegister(_failedMtc)
}
