// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// threatDetectionsTotal counts positive threat verdicts by the policy the
// call site applied.
// Labels:
//   - policy: "block", "flag"
var threatDetectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reelist_threat_detections_total",
		Help: "Total number of inputs matching a threat pattern",
	},
	[]string{"policy"},
)
