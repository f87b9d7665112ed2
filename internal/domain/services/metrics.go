package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	alertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rescue_alerts_created_total",
		Help: "Canonical alerts created, labelled by origin (online or sync).",
	}, []string{"origin"})

	alertsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rescue_alerts_replayed_total",
		Help: "Create requests answered with an existing record for the same idempotency key.",
	})

	alertsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rescue_alerts_resolved_total",
		Help: "Alerts transitioned to resolved.",
	})

	mediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rescue_media_uploads_total",
		Help: "Media uploads by outcome.",
	}, []string{"outcome"})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rescue_notifications_total",
		Help: "Notification deliveries attempted, by channel and outcome.",
	}, []string{"channel", "outcome"})
)

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
