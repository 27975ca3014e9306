package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exposed by the challenger.
const Namespace = "da_challenge"

// Challenge outcomes.
const (
	OutcomeFraudProven  = "fraud_proven"
	OutcomeAvailable    = "blob_available"
	OutcomeInputError   = "input_error"
	OutcomeFailed       = "failed"
	OutcomeSubmitted    = "submitted"
	OutcomeSealRejected = "seal_rejected"
)

// Metrics holds the challenger metrics. A nil *Metrics is a no-op.
type Metrics struct {
	ChallengeOutcomes *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	CachedEvents      prometheus.Gauge
	RPCRetries        *prometheus.CounterVec
	BlockProofFetch   prometheus.Histogram
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ChallengeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "challenge_outcomes_total",
			Help:      "Count of challenge outcomes by kind.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "event_cache",
			Name:      "lookups_total",
			Help:      "Count of data commitment cache lookups by result.",
		}, []string{"result"}),
		CachedEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "event_cache",
			Name:      "events",
			Help:      "Number of cached data commitments.",
		}),
		RPCRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rpc_retries_total",
			Help:      "Count of retried RPC calls by operation.",
		}, []string{"operation"}),
		BlockProofFetch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "block_proof_fetch_seconds",
			Help:      "Time spent fetching a block proof.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.ChallengeOutcomes, m.CacheLookups, m.CachedEvents, m.RPCRetries, m.BlockProofFetch} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.ChallengeOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) SetCachedEvents(n int) {
	if m == nil {
		return
	}
	m.CachedEvents.Set(float64(n))
}

func (m *Metrics) Retry(operation string) {
	if m == nil {
		return
	}
	m.RPCRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveBlockProofFetch(seconds float64) {
	if m == nil {
		return
	}
	m.BlockProofFetch.Observe(seconds)
}
