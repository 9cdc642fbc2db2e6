package postback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offerbot_postback_runs_total",
		Help: "Completed postback orchestration runs by outcome.",
	}, []string{"outcome"})

	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offerbot_postback_steps_total",
		Help: "Individual postback steps by result.",
	}, []string{"result"})

	stepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "offerbot_postback_step_seconds",
		Help:    "Latency of individual postback HTTP calls.",
		Buckets: prometheus.DefBuckets,
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "offerbot_postback_queue_depth",
		Help: "Submissions waiting for a free orchestration worker.",
	})
)
