// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"github.com/LeeDigitalWorks/zapup/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	tokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zapup",
		Subsystem: "upload",
		Name:      "tokens_issued_total",
		Help:      "Upload tokens issued by mime type",
	}, []string{"mime"})

	allocationRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapup",
		Subsystem: "upload",
		Name:      "allocation_retries_total",
		Help:      "Key candidates rejected because they were already reserved",
	})

	promotionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zapup",
		Subsystem: "upload",
		Name:      "promotions_total",
		Help:      "Promotions by result",
	}, []string{"result"})

	promoteOrphans = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapup",
		Subsystem: "upload",
		Name:      "promote_orphans_total",
		Help:      "Temporary copies left behind after a successful promotion",
	})

	ingestedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapup",
		Subsystem: "upload",
		Name:      "ingested_bytes_total",
		Help:      "Bytes stored through URL ingestion",
	})

	sweepRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapup",
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Sweep passes started",
	})

	sweepDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapup",
		Subsystem: "sweep",
		Name:      "deleted_total",
		Help:      "Objects deleted by sweeps",
	})

	sweepDeleteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapup",
		Subsystem: "sweep",
		Name:      "delete_errors_total",
		Help:      "Per-object delete failures during sweeps",
	})

	sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zapup",
		Subsystem: "sweep",
		Name:      "duration_seconds",
		Help:      "Duration of sweep passes",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	})
)

func init() {
	debug.Registry().MustRegister(
		tokensIssued,
		allocationRetries,
		promotionsTotal,
		promoteOrphans,
		ingestedBytes,
		sweepRuns,
		sweepDeleted,
		sweepDeleteErrors,
		sweepDuration,
	)
}
