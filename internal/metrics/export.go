package metrics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ipckit-go/ipckit/internal/ipcerr"
)

// Snapshot is a point-in-time copy of a ChannelMetrics' derived values,
// suitable for JSON serialization or display.
type Snapshot struct {
	MessagesSent     uint64  `json:"messages_sent"`
	MessagesReceived uint64  `json:"messages_received"`
	BytesSent        uint64  `json:"bytes_sent"`
	BytesReceived    uint64  `json:"bytes_received"`
	SendErrors       uint64  `json:"send_errors"`
	ReceiveErrors    uint64  `json:"receive_errors"`
	QueueDepth       uint64  `json:"queue_depth"`
	PeakQueueDepth   uint64  `json:"peak_queue_depth"`
	AvgLatencyUs     uint64  `json:"avg_latency_us"`
	MinLatencyUs     *uint64 `json:"min_latency_us"`
	MaxLatencyUs     uint64  `json:"max_latency_us"`
	P50LatencyUs     uint64  `json:"p50_latency_us"`
	P95LatencyUs     uint64  `json:"p95_latency_us"`
	P99LatencyUs     uint64  `json:"p99_latency_us"`
	ElapsedSecs      float64 `json:"elapsed_secs"`
	SendThroughput   float64 `json:"send_throughput"`
	RecvThroughput   float64 `json:"recv_throughput"`
	SendBandwidth    float64 `json:"send_bandwidth"`
	RecvBandwidth    float64 `json:"recv_bandwidth"`
}

// Snapshot captures every derived metric at the current instant.
func (m *ChannelMetrics) Snapshot() Snapshot {
	var minPtr *uint64
	if min, ok := m.MinLatencyUs(); ok {
		minPtr = &min
	}
	return Snapshot{
		MessagesSent:     m.MessagesSent(),
		MessagesReceived: m.MessagesReceived(),
		BytesSent:        m.BytesSent(),
		BytesReceived:    m.BytesReceived(),
		SendErrors:       m.SendErrors(),
		ReceiveErrors:    m.ReceiveErrors(),
		QueueDepth:       m.QueueDepth(),
		PeakQueueDepth:   m.PeakQueueDepth(),
		AvgLatencyUs:     m.AvgLatencyUs(),
		MinLatencyUs:     minPtr,
		MaxLatencyUs:     m.MaxLatencyUs(),
		P50LatencyUs:     m.LatencyPercentile(50),
		P95LatencyUs:     m.LatencyPercentile(95),
		P99LatencyUs:     m.LatencyPercentile(99),
		ElapsedSecs:      m.Elapsed().Seconds(),
		SendThroughput:   m.SendThroughput(),
		RecvThroughput:   m.RecvThroughput(),
		SendBandwidth:    m.SendBandwidth(),
		RecvBandwidth:    m.RecvBandwidth(),
	}
}

// ToJSON renders the current snapshot as compact JSON.
func (m *ChannelMetrics) ToJSON() (string, error) {
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		return "", ipcerr.InvalidData(err)
	}
	return string(data), nil
}

// ToJSONPretty renders the current snapshot as indented JSON.
func (m *ChannelMetrics) ToJSONPretty() (string, error) {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "", ipcerr.InvalidData(err)
	}
	return string(data), nil
}

// ToPrometheus renders the snapshot as Prometheus text exposition format,
// with every metric name prefixed by prefix. This is the hand-rolled
// text path used by callers who want a self-contained export without a
// registry; Registry (in registry.go) is the promauto-backed alternative
// for scrape-based collection.
func (m *ChannelMetrics) ToPrometheus(prefix string) string {
	s := m.Snapshot()
	var b strings.Builder

	counter := func(name, help string, value uint64) {
		fmt.Fprintf(&b, "# HELP %s_%s %s\n", prefix, name, help)
		fmt.Fprintf(&b, "# TYPE %s_%s counter\n", prefix, name)
		fmt.Fprintf(&b, "%s_%s %d\n", prefix, name, value)
	}

	counter("messages_sent_total", "Total messages sent", s.MessagesSent)
	counter("messages_received_total", "Total messages received", s.MessagesReceived)
	counter("bytes_sent_total", "Total bytes sent", s.BytesSent)
	counter("bytes_received_total", "Total bytes received", s.BytesReceived)
	counter("send_errors_total", "Total send errors", s.SendErrors)
	counter("receive_errors_total", "Total receive errors", s.ReceiveErrors)

	fmt.Fprintf(&b, "# HELP %s_queue_depth Current queue depth\n", prefix)
	fmt.Fprintf(&b, "# TYPE %s_queue_depth gauge\n", prefix)
	fmt.Fprintf(&b, "%s_queue_depth %d\n", prefix, s.QueueDepth)

	fmt.Fprintf(&b, "# HELP %s_peak_queue_depth Peak queue depth\n", prefix)
	fmt.Fprintf(&b, "# TYPE %s_peak_queue_depth gauge\n", prefix)
	fmt.Fprintf(&b, "%s_peak_queue_depth %d\n", prefix, s.PeakQueueDepth)

	fmt.Fprintf(&b, "# HELP %s_latency_microseconds Latency in microseconds\n", prefix)
	fmt.Fprintf(&b, "# TYPE %s_latency_microseconds summary\n", prefix)
	fmt.Fprintf(&b, "%s_latency_microseconds{quantile=\"0.5\"} %d\n", prefix, s.P50LatencyUs)
	fmt.Fprintf(&b, "%s_latency_microseconds{quantile=\"0.95\"} %d\n", prefix, s.P95LatencyUs)
	fmt.Fprintf(&b, "%s_latency_microseconds{quantile=\"0.99\"} %d\n", prefix, s.P99LatencyUs)

	fmt.Fprintf(&b, "# HELP %s_throughput_messages_per_second Message throughput\n", prefix)
	fmt.Fprintf(&b, "# TYPE %s_throughput_messages_per_second gauge\n", prefix)
	fmt.Fprintf(&b, "%s_throughput_messages_per_second{direction=\"send\"} %.2f\n", prefix, s.SendThroughput)
	fmt.Fprintf(&b, "%s_throughput_messages_per_second{direction=\"recv\"} %.2f\n", prefix, s.RecvThroughput)

	return b.String()
}
