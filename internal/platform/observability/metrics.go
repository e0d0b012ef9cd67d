package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_messages_seen_total",
		Help: "The total number of source messages observed by the pipeline",
	})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_messages_dropped_total",
		Help: "The total number of messages dropped by the pipeline by reason",
	}, []string{"reason"})

	MessagesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_messages_forwarded_total",
		Help: "The total number of messages forwarded to the target chat",
	})

	ForwardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "monitor_forward_duration_seconds",
		Help:    "Duration of destination sends",
		Buckets: prometheus.DefBuckets,
	})

	PipelineRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "monitor_pipeline_running",
		Help: "Whether the monitoring pipeline is running (0=stopped, 1=running)",
	})

	EventQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_event_queue_dropped_total",
		Help: "The total number of source events dropped because the queue was full",
	})

	DialogueEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_dialogue_events_total",
		Help: "The total number of handled dialogue events by kind",
	}, []string{"kind"})

	RenderResends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_render_resends_total",
		Help: "The total number of UI renders that fell back to delete and resend",
	})
)
