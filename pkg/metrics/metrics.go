package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "chapterhub", Name: "tokens_issued_total", Help: "Number of signed tokens issued by kind."},
		[]string{"kind"},
	)
	Renewals = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "chapterhub", Name: "session_renewals_total", Help: "Number of refresh-token renewal attempts by outcome."},
		[]string{"outcome"},
	)
	RevocationsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "chapterhub", Name: "revocation_entries_swept_total", Help: "Number of expired revocation entries removed by the sweeper."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "chapterhub", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "chapterhub", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(TokensIssued)
	reg.MustRegister(Renewals)
	reg.MustRegister(RevocationsSwept)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
