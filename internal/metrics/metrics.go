package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProviderRequestsTotal *prometheus.CounterVec

	ProviderLatency *prometheus.HistogramVec

	// Sub-searches that failed and were treated as empty.
	RetrievalFailuresTotal *prometheus.CounterVec

	RetrievalResultSize *prometheus.HistogramVec

	QueriesTotal *prometheus.CounterVec

	AuditEventsTotal *prometheus.CounterVec
)

func init() {
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal_assistant",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Provider calls by provider and reply kind",
		},
		[]string{"provider", "kind"},
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legal_assistant",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Provider round trip time in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	RetrievalFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal_assistant",
			Subsystem: "retrieval",
			Name:      "subsearch_failures_total",
			Help:      "Failed retrieval sub-searches by source",
		},
		[]string{"source"},
	)

	RetrievalResultSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legal_assistant",
			Subsystem: "retrieval",
			Name:      "result_size",
			Help:      "Number of items kept per retrieval section",
			Buckets:   []float64{0, 1, 2, 3, 5, 7, 10},
		},
		[]string{"section"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal_assistant",
			Subsystem: "chat",
			Name:      "queries_total",
			Help:      "Processed chat queries by detected intent",
		},
		[]string{"intent"},
	)

	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal_assistant",
			Subsystem: "audit",
			Name:      "events_total",
			Help:      "Query audit events by stage and status",
		},
		[]string{"stage", "status"},
	)

	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderLatency)
	prometheus.MustRegister(RetrievalFailuresTotal)
	prometheus.MustRegister(RetrievalResultSize)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(AuditEventsTotal)
}

func RecordProviderCall(provider, kind string, durationSec float64) {
	if provider == "" {
		provider = "unknown"
	}
	ProviderRequestsTotal.WithLabelValues(provider, kind).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(durationSec)
}

// RecordRetrievalFailure takes one of "records", "documents" or "references".
func RecordRetrievalFailure(source string) {
	RetrievalFailuresTotal.WithLabelValues(source).Inc()
}

func RecordRetrievalSizes(records, documents, references int) {
	RetrievalResultSize.WithLabelValues("records").Observe(float64(records))
	RetrievalResultSize.WithLabelValues("documents").Observe(float64(documents))
	RetrievalResultSize.WithLabelValues("references").Observe(float64(references))
}

func RecordQuery(intent string) {
	QueriesTotal.WithLabelValues(intent).Inc()
}

func RecordAuditEvent(stage, status string) {
	AuditEventsTotal.WithLabelValues(stage, status).Inc()
}
