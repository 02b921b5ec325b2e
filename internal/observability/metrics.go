// Package observability holds Prometheus metrics and Sentry error reporting.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LikeToggles counts like toggles by entity kind and result (liked, unliked, error).
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_like_toggles_total",
		Help: "Total number of like toggles by entity kind and result",
	}, []string{"kind", "result"})

	// FeedAssembleDuration records how long it takes to build one feed page.
	FeedAssembleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_feed_assemble_duration_seconds",
		Help:    "Feed page assembly latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	// FeedAuthorLookupFailures counts pages served without author profiles.
	FeedAuthorLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blog_feed_author_lookup_failures_total",
		Help: "Total number of feed pages whose author lookup failed",
	})

	// MalformedTimestamps counts post records whose createdAt had to be replaced.
	MalformedTimestamps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blog_feed_malformed_timestamps_total",
		Help: "Total number of post records with an unrecognized createdAt",
	})

	// LiveSubscriptions is the gauge of open live feed subscriptions.
	LiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blog_live_subscriptions",
		Help: "Number of open live feed subscriptions",
	})

	// FeedPageCache counts first-page cache lookups by result (hit, miss, error).
	FeedPageCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_feed_page_cache_total",
		Help: "First page cache lookups by result",
	}, []string{"result"})

	// ImageUploads counts image uploads by result.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_image_uploads_total",
		Help: "Total number of image uploads by result",
	}, []string{"result"})

	// WorkerEvents counts stream events handled by the worker.
	WorkerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_worker_events_total",
		Help: "Total number of stream events handled by type and result",
	}, []string{"type", "result"})
)
