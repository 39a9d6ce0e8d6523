// Package metrics registers the service's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "posecoach_active_sessions",
		Help: "Current number of active coaching sessions",
	})
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecoach_sessions_started_total",
		Help: "Total number of coaching sessions started",
	})
	SessionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecoach_sessions_rejected_total",
		Help: "Total number of sessions rejected at the capacity limit",
	})

	AudioFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecoach_audio_frames_sent_total",
		Help: "Total capture audio blocks forwarded to the inference endpoint",
	})
	AudioBytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecoach_audio_bytes_sent_total",
		Help: "Total capture audio bytes forwarded to the inference endpoint",
	})
	ImageFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecoach_image_frames_sent_total",
		Help: "Total video stills forwarded to the inference endpoint",
	})

	AudioDeltasReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecoach_audio_deltas_received_total",
		Help: "Total synthesized audio fragments received",
	})
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecoach_decode_errors_total",
		Help: "Total malformed audio fragments dropped",
	})

	TranscriptTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecoach_transcript_turns_total",
		Help: "Total finalized transcript turns",
	})
	Interruptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecoach_interruptions_total",
		Help: "Total server-side interruption events",
	})

	TranscriptPublishDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "posecoach_transcript_publish_seconds",
		Help:    "Latency of transcript event publishing",
		Buckets: prometheus.DefBuckets,
	})
)
