// Package metrics exposes Prometheus counters for the flows operators care
// about: sign-in outcomes, code verifications, and group membership churn.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "youthscc_sign_ins_total",
		Help: "Sign-in attempts by method and outcome.",
	}, []string{"method", "outcome"})

	VerificationCodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "youthscc_verification_codes_total",
		Help: "Phone verification codes by stage and outcome.",
	}, []string{"stage", "outcome"})

	GroupMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "youthscc_group_mutations_total",
		Help: "Bible study group mutations by action and outcome.",
	}, []string{"action", "outcome"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
