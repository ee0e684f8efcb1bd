// Package metrics exposes Prometheus counters for the HTTP layer and the
// tournament engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tournament_organizer"

type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	MatchesPlayed     *prometheus.CounterVec
	FixturesGenerated *prometheus.CounterVec
	StagesAdvanced    *prometheus.CounterVec
	PublishJobs       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		MatchesPlayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_played_total",
			Help:      "Match results stored, by source (recorded or simulated).",
		}, []string{"source"}),
		FixturesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fixtures_generated_total",
			Help:      "Matches created by fixture generation, by tournament format.",
		}, []string{"format"}),
		StagesAdvanced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_advanced_total",
			Help:      "Knockout stages created by advancement, by stage label.",
		}, []string{"stage"}),
		PublishJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_jobs_total",
			Help:      "Snapshot publish jobs by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.MatchesPlayed,
		m.FixturesGenerated,
		m.StagesAdvanced,
		m.PublishJobs,
	)
	return m
}

// NewNop returns collectors registered nowhere, for tests and tools.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
