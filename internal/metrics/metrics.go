package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReviewsCollected counts review cards seen during collection, labeled by result.
	ReviewsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvreviews_reviews_collected_total",
		Help: "The total number of review cards processed by the collector",
	}, []string{"result"}) // result: new, duplicate, invalid, failed

	// RepliesGenerated counts reply generation attempts.
	RepliesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvreviews_replies_generated_total",
		Help: "The total number of reply generation attempts",
	}, []string{"result"}) // result: success, error, skipped

	// RepliesPosted counts posting outcomes.
	RepliesPosted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvreviews_replies_posted_total",
		Help: "The total number of reply posting attempts",
	}, []string{"result"}) // result: posted, existing, missing, failed

	// RunDuration measures how long each pipeline stage takes.
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pvreviews_run_duration_seconds",
		Help:    "Time taken by a pipeline stage",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"process", "status"})

	// PaginationClicks counts "more reviews" clicks
	PaginationClicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pvreviews_pagination_clicks_total",
		Help: "The total number of pagination clicks in the review list",
	})

	// LLMRequests counts model calls by backend.
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvreviews_llm_requests_total",
		Help: "The total number of LLM requests",
	}, []string{"backend", "status"}) // status: success, error

	// NotificationsSent counts notifier deliveries
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvreviews_notifications_total",
		Help: "The total number of notification attempts",
	}, []string{"channel", "status"})
)
