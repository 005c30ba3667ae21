package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	configCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recruitment",
		Subsystem: "config_cache",
		Name:      "requests_total",
		Help:      "Total number of configuration cache lookups broken down by kind and hit/miss/fallback.",
	}, []string{"kind", "result"})

	configCacheInvalidate = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recruitment",
		Subsystem: "config_cache",
		Name:      "invalidate_total",
		Help:      "Total number of configuration cache invalidations broken down by kind.",
	}, []string{"kind"})

	badgeAllocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recruitment",
		Subsystem: "badge",
		Name:      "allocations_total",
		Help:      "Total number of badge allocations broken down by prefix and outcome.",
	}, []string{"prefix", "result"})

	badgeClaimConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recruitment",
		Subsystem: "badge",
		Name:      "claim_conflicts_total",
		Help:      "Total number of badge claims lost to a concurrent hire.",
	}, []string{"prefix"})

	identitySyncCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recruitment",
		Subsystem: "identity_sync",
		Name:      "calls_total",
		Help:      "Total number of external identity calls broken down by operation and result.",
	}, []string{"operation", "result"})

	pipelineTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recruitment",
		Subsystem: "pipeline",
		Name:      "transitions_total",
		Help:      "Total number of applicant status transitions.",
	}, []string{"from", "to"})

	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recruitment",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of refused writes broken down by kind.",
	}, []string{"kind"})
)

func recordCacheRequest(kind, result string) {
	configCacheRequests.WithLabelValues(kind, result).Inc()
}

func recordCacheInvalidate(kind string) {
	if kind == "" {
		kind = "all"
	}
	configCacheInvalidate.WithLabelValues(kind).Inc()
}

func recordBadgeAllocation(prefix string, ok bool) {
	result := "allocated"
	if !ok {
		result = "exhausted"
	}
	badgeAllocations.WithLabelValues(prefix, result).Inc()
}

func recordBadgeConflict(prefix string) {
	badgeClaimConflicts.WithLabelValues(prefix).Inc()
}

func recordIdentityCall(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	identitySyncCalls.WithLabelValues(operation, result).Inc()
}

func recordTransition(from, to string) {
	pipelineTransitions.WithLabelValues(from, to).Inc()
}

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	writeConflicts.WithLabelValues(kind).Inc()
}
