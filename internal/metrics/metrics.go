// Package metrics exposes Prometheus collectors for the editor core's
// own health: project saves, autosave/orphan-sweep behaviour, the job
// queue and the media ingestion pipeline. Handlers call these directly
// rather than threading a collector object through every module, the
// same package-level promauto pattern the example pack uses.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProjectSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelcore_project_saves_total",
		Help: "Project saves, labelled by outcome (ok, error).",
	}, []string{"outcome"})

	ProjectSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reelcore_project_save_duration_seconds",
		Help:    "Time to assemble and atomically write project.json.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	OrphanSweepRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelcore_orphan_sweep_removed_total",
		Help: "Media reference directories removed by orphan sweeps.",
	})

	JobQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reelcore_job_queue_depth",
		Help: "Pending, active and scheduled asynq tasks, labelled by queue (critical, default, low).",
	}, []string{"queue"})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelcore_jobs_processed_total",
		Help: "Background jobs processed, labelled by task type and outcome.",
	}, []string{"task", "outcome"})

	MediaIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelcore_media_ingested_total",
		Help: "Media items that finished decoding, labelled by outcome (ready, error, cancelled).",
	}, []string{"outcome"})

	MediaDecodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reelcore_media_decode_duration_seconds",
		Help:    "Time from decode start to a media item reaching ready.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelcore_websocket_clients",
		Help: "Currently connected push-channel WebSocket clients.",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelcore_notifications_total",
		Help: "Notifications raised, labelled by severity.",
	}, []string{"severity"})
)
