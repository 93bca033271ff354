// Package obs registers the application's Prometheus metrics.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReportsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_generated_total",
			Help: "PDF reports generated, by template variant.",
		},
		[]string{"variant"},
	)

	AICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_calls_total",
			Help: "AI advisor calls, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	Uploads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_uploads_total",
		Help: "Accepted image uploads.",
	})

	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Login attempts, by outcome.",
		},
		[]string{"outcome"},
	)
)

func Init() {
	prometheus.MustRegister(ReportsGenerated, AICalls, Uploads, Logins)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// AIOutcome folds an advisor result into a metric label.
func AIOutcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
