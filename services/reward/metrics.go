package reward

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultRecorded  = "recorded"
	resultDuplicate = "duplicate"
	resultSkipped   = "skipped"
	resultFailed    = "failed"
	resultAccepted  = "accepted"
	resultRejected  = "rejected"
)

var (
	earnEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bakimla",
		Subsystem: "reward",
		Name:      "earn_events_total",
		Help:      "Completion reward attempts by outcome.",
	}, []string{"result"})

	withdrawalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bakimla",
		Subsystem: "reward",
		Name:      "withdrawal_requests_total",
		Help:      "Withdrawal requests by outcome.",
	}, []string{"result"})

	withdrawnAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bakimla",
		Subsystem: "reward",
		Name:      "withdrawn_amount_total",
		Help:      "Sum of accepted withdrawal amounts.",
	})

	reconcileJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bakimla",
		Subsystem: "reward",
		Name:      "reconcile_jobs_total",
		Help:      "Nightly reconciliation jobs by status.",
	}, []string{"status"})
)
