// Package metrics holds the device agent's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncPasses counts sync passes, labelled by how the pass ended.
	SyncPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rescue_agent_sync_passes_total",
		Help: "Offline queue sync passes.",
	}, []string{"result"})

	// RecordsCommitted counts queue records committed to the canonical store.
	RecordsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rescue_agent_records_committed_total",
		Help: "Offline records committed and removed from the queue.",
	})

	// CommitFailures counts records left in the queue after a failed commit.
	CommitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rescue_agent_commit_failures_total",
		Help: "Offline records whose commit failed and stay queued.",
	})

	// MediaUploads counts individual media uploads by outcome.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rescue_agent_media_uploads_total",
		Help: "Media upload attempts.",
	}, []string{"outcome"})

	// SMSAttempts counts SMS send attempts by outcome.
	SMSAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rescue_agent_sms_attempts_total",
		Help: "SMS send attempts.",
	}, []string{"outcome"})

	// Connected is 1 while the device considers itself online.
	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rescue_agent_connected",
		Help: "Current connectivity (1 connected, 0 disconnected).",
	})

	// PendingRecords is the number of records waiting in the offline queue.
	PendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rescue_agent_pending_records",
		Help: "Records waiting in the offline queue.",
	})
)

// Outcome maps an error to a label value.
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
