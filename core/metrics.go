package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tokenRefreshTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "openapi_company",
		Subsystem: "token",
		Name:      "refresh_total",
		Help:      "Successful dynamic token fetches.",
	})

	tokenFetchAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "openapi_company",
		Subsystem: "token",
		Name:      "fetch_attempts_total",
		Help:      "Individual requests to the token endpoint, including retries.",
	})

	tokenFetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "openapi_company",
		Subsystem: "token",
		Name:      "fetch_failures_total",
		Help:      "Token acquisitions abandoned after exhausting retries.",
	})
)
