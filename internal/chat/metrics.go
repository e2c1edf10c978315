package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_clients",
		Help: "Number of peers currently registered in the connection table",
	})

	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total connection events processed by type",
	}, []string{"type"})

	SendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_send_failures_total",
		Help: "Broadcast sends that failed for a single recipient",
	})

	BytesRelayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_relayed_bytes_total",
		Help: "Bytes delivered to recipients",
	})

	PassDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_pass_duration_seconds",
		Help:    "Time to dispatch and compact one readiness pass",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(SendFailures)
	prometheus.MustRegister(BytesRelayed)
	prometheus.MustRegister(PassDuration)
}
