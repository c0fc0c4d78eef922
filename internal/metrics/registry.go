package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the promauto-constructed collectors shared by every
// channel in a process, labeled by channel name. Each Registry owns a
// private prometheus.Registry rather than registering against the global
// default registerer, so that more than one Registry can coexist in the
// same process (e.g. one per test) without a duplicate-registration panic.
// Wire Collector() into an HTTP server via promhttp.HandlerFor (see
// cmd/ipckitd) rather than polling ChannelMetrics.ToPrometheus per channel.
type Registry struct {
	reg *prometheus.Registry

	MessagesSent     *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	BytesSent        *prometheus.CounterVec
	BytesReceived    *prometheus.CounterVec
	SendErrors       *prometheus.CounterVec
	ReceiveErrors    *prometheus.CounterVec
	QueueDepth       *prometheus.GaugeVec
	PeakQueueDepth   *prometheus.GaugeVec
	Latency          *prometheus.HistogramVec
}

// NewRegistry constructs a private prometheus.Registry and every collector
// registered against it, under the given metric name prefix.
func NewRegistry(prefix string) *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_messages_sent_total",
			Help: "Total messages sent, by channel",
		}, []string{"channel"}),
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_messages_received_total",
			Help: "Total messages received, by channel",
		}, []string{"channel"}),
		BytesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_bytes_sent_total",
			Help: "Total bytes sent, by channel",
		}, []string{"channel"}),
		BytesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_bytes_received_total",
			Help: "Total bytes received, by channel",
		}, []string{"channel"}),
		SendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_send_errors_total",
			Help: "Total send errors, by channel",
		}, []string{"channel"}),
		ReceiveErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_receive_errors_total",
			Help: "Total receive errors, by channel",
		}, []string{"channel"}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_queue_depth",
			Help: "Current queue depth, by channel",
		}, []string{"channel"}),
		PeakQueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_peak_queue_depth",
			Help: "Peak queue depth, by channel",
		}, []string{"channel"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_latency_microseconds",
			Help:    "Per-message latency in microseconds, by channel",
			Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000},
		}, []string{"channel"}),
	}
}

// Collector exposes the private Registry so callers can hand it to
// promhttp.HandlerFor for a scrape endpoint, or register additional
// collectors (e.g. the process/go runtime collectors) alongside it.
func (r *Registry) Collector() *prometheus.Registry { return r.reg }

// ObserveSend increments the send-side counters for channel.
func (r *Registry) ObserveSend(channel string, bytes int) {
	r.MessagesSent.WithLabelValues(channel).Inc()
	r.BytesSent.WithLabelValues(channel).Add(float64(bytes))
}

// ObserveRecv increments the receive-side counters for channel.
func (r *Registry) ObserveRecv(channel string, bytes int) {
	r.MessagesReceived.WithLabelValues(channel).Inc()
	r.BytesReceived.WithLabelValues(channel).Add(float64(bytes))
}

// ObserveSendError increments the send-error counter for channel.
func (r *Registry) ObserveSendError(channel string) {
	r.SendErrors.WithLabelValues(channel).Inc()
}

// ObserveRecvError increments the receive-error counter for channel.
func (r *Registry) ObserveRecvError(channel string) {
	r.ReceiveErrors.WithLabelValues(channel).Inc()
}

// ObserveLatency records one latency sample for channel.
func (r *Registry) ObserveLatency(channel string, d time.Duration) {
	r.Latency.WithLabelValues(channel).Observe(float64(d.Microseconds()))
}

// SetQueueDepth sets the current queue-depth gauge for channel.
func (r *Registry) SetQueueDepth(channel string, depth float64) {
	r.QueueDepth.WithLabelValues(channel).Set(depth)
}

// SetPeakQueueDepth sets the peak queue-depth gauge for channel. Callers
// pass the value already tracked by ChannelMetrics.PeakQueueDepth — the
// CAS-loop logic lives there, not in the gauge itself.
func (r *Registry) SetPeakQueueDepth(channel string, depth float64) {
	r.PeakQueueDepth.WithLabelValues(channel).Set(depth)
}
