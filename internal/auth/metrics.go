// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// loginAttemptsTotal counts login attempts by outcome.
	// Labels:
	//   - outcome: "success", "failure", "locked"
	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelist_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"outcome"},
	)

	// lockoutsTotal counts lockout activations.
	lockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelist_lockouts_total",
			Help: "Total number of brute-force lockout activations",
		},
	)

	// tokenVerifyFailuresTotal counts rejected bearer tokens. All failure
	// modes share one counter, matching the collapsed error surface.
	tokenVerifyFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelist_token_verify_failures_total",
			Help: "Total number of rejected bearer tokens",
		},
	)
)
