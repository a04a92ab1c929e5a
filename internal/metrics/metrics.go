// Package metrics exposes Prometheus counters for the link domain.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Shortens = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shorten_requests_total",
		Help: "Total shorten requests.",
	})
	Redirects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redirect_requests_total",
		Help: "Total redirect requests.",
	})
	ClicksTracked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clicks_tracked_total",
		Help: "Clicks recorded successfully.",
	})
	ClicksFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clicks_failed_total",
		Help: "Click tracking transactions that failed.",
	})
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "Requests rejected by the per-IP rate limiter.",
	})
)

func init() {
	prometheus.MustRegister(Shortens, Redirects, ClicksTracked, ClicksFailed, RateLimited)
}

// Handler serves the Prometheus scrape endpoint.
func Handler(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
