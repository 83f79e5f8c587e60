// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trace

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "romadebug_analyses_total",
		Help: "Total analyses run, partitioned by outcome.",
	}, []string{"result"})

	appliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "romadebug_applies_total",
		Help: "Total per-file patch applications, partitioned by outcome.",
	}, []string{"result"})

	upstreamFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "romadebug_upstream_failures_total",
		Help: "Total LLM upstream failures, partitioned by error kind.",
	}, []string{"kind"})
)
