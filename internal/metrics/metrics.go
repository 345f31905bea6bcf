// Package metrics exposes Prometheus instrumentation for ingestion and
// analysis.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VideoIngestions counts ingestion requests by outcome: saved,
	// already_saved, or failed.
	VideoIngestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comment_analysis_video_ingestions_total",
		Help: "Total number of video ingestion requests by outcome",
	}, []string{"outcome"})

	// CommentsFetched counts comments retrieved from the upstream API.
	CommentsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comment_analysis_comments_fetched_total",
		Help: "Total number of comments fetched from YouTube",
	})

	// AnalysisRuns counts analysis passes by kind and outcome.
	AnalysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comment_analysis_runs_total",
		Help: "Total number of analysis runs by pass and outcome",
	}, []string{"pass", "outcome"})

	// AnalysisDuration observes wall-clock duration of analysis passes.
	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "comment_analysis_run_duration_seconds",
		Help:    "Duration of analysis runs in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"pass"})
)
