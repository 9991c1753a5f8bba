// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricStatusOK     = "ok"
	metricStatusFailed = "failed"
)

var (
	ceremoniesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passkey",
		Name:      "ceremonies_started_total",
		Help:      "Ceremonies started, by kind.",
	}, []string{"kind"})

	ceremoniesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passkey",
		Name:      "ceremonies_finished_total",
		Help:      "Ceremony finish attempts, by kind and status.",
	}, []string{"kind", "status"})

	verificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passkey",
		Name:      "verification_failures_total",
		Help:      "Failed response verifications, by reason.",
	}, []string{"reason"})
)
