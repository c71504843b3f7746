package metrics

import "github.com/prometheus/client_golang/prometheus"

// Payout outcomes reported by settlement jobs.
const (
	OutcomePaid     = "paid"
	OutcomeDeferred = "deferred"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

// SettlementMetrics counts per-row payout outcomes and the cents moved.
type SettlementMetrics struct {
	payouts *prometheus.CounterVec
	cents   *prometheus.CounterVec
}

// NewSettlementMetrics registers settlement collectors on reg. A nil registerer
// yields a no-op recorder.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "payouts_total",
		Help:      "Settlement payout attempts by job and outcome.",
	}, []string{"job", "outcome"})
	cents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "payout_cents_total",
		Help:      "Cents transferred to payees by job.",
	}, []string{"job"})
	reg.MustRegister(payouts, cents)
	return &SettlementMetrics{payouts: payouts, cents: cents}
}

// Record counts one row outcome. amountCents is only added for paid rows.
func (s *SettlementMetrics) Record(job, outcome string, amountCents int64) {
	if s == nil || s.payouts == nil {
		return
	}
	s.payouts.WithLabelValues(normalizeLabel(job), outcome).Inc()
	if outcome == OutcomePaid && amountCents > 0 {
		s.cents.WithLabelValues(normalizeLabel(job)).Add(float64(amountCents))
	}
}
