// Package metrics instruments IPC channels: atomic counters for message and
// byte throughput, CAS-loop-updated latency and queue-depth extremes, a
// bounded percentile reservoir, JSON/Prometheus text export, and a
// prometheus/client_golang-backed registry for scrape-based collection.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// ChannelMetrics holds the atomic counters for one channel. The counters
// are lock-free atomics; only the latency reservoir takes a short lock,
// when a sample is recorded, a percentile is computed, or it is reset.
type ChannelMetrics struct {
	messagesSent     atomic.Uint64
	messagesReceived atomic.Uint64
	bytesSent        atomic.Uint64
	bytesReceived    atomic.Uint64
	sendErrors       atomic.Uint64
	receiveErrors    atomic.Uint64

	queueDepth     atomic.Uint64
	peakQueueDepth atomic.Uint64

	latencySumUs   atomic.Uint64
	latencyCount   atomic.Uint64
	minLatencyUs   atomic.Uint64
	maxLatencyUs   atomic.Uint64
	histogram      latencyHistogram

	startOnce sync.Once
	startTime time.Time
}

// New returns a fresh ChannelMetrics with minLatencyUs primed to the
// maximum representable value, so the first CAS loop always wins.
func New() *ChannelMetrics {
	m := &ChannelMetrics{histogram: newLatencyHistogram(reservoirSize)}
	m.minLatencyUs.Store(math.MaxUint64)
	return m
}

// RecordSend records a sent message of the given size and starts the
// elapsed-time clock if this is the first activity on the channel.
func (m *ChannelMetrics) RecordSend(bytes int) {
	m.ensureStarted()
	m.messagesSent.Add(1)
	m.bytesSent.Add(uint64(bytes))
}

// RecordRecv records a received message of the given size.
func (m *ChannelMetrics) RecordRecv(bytes int) {
	m.ensureStarted()
	m.messagesReceived.Add(1)
	m.bytesReceived.Add(uint64(bytes))
}

// RecordSendError increments the send-error counter.
func (m *ChannelMetrics) RecordSendError() { m.sendErrors.Add(1) }

// RecordRecvError increments the receive-error counter.
func (m *ChannelMetrics) RecordRecvError() { m.receiveErrors.Add(1) }

// RecordLatency records one latency sample and updates the running min/max
// via a compare-and-swap retry loop — the same pattern the original Rust
// reference uses for min_latency_us/max_latency_us, and the resolution to
// spec §9's open question on how peak values are tracked without locking.
func (m *ChannelMetrics) RecordLatency(d time.Duration) {
	us := uint64(d.Microseconds())
	m.latencySumUs.Add(us)
	m.latencyCount.Add(1)

	for {
		cur := m.minLatencyUs.Load()
		if us >= cur || m.minLatencyUs.CompareAndSwap(cur, us) {
			break
		}
	}
	for {
		cur := m.maxLatencyUs.Load()
		if us <= cur || m.maxLatencyUs.CompareAndSwap(cur, us) {
			break
		}
	}

	m.histogram.record(us)
}

// SetQueueDepth records the current queue depth and updates the peak via
// the same CAS-loop pattern as RecordLatency.
func (m *ChannelMetrics) SetQueueDepth(depth uint64) {
	m.queueDepth.Store(depth)
	for {
		cur := m.peakQueueDepth.Load()
		if depth <= cur || m.peakQueueDepth.CompareAndSwap(cur, depth) {
			break
		}
	}
}

func (m *ChannelMetrics) MessagesSent() uint64     { return m.messagesSent.Load() }
func (m *ChannelMetrics) MessagesReceived() uint64 { return m.messagesReceived.Load() }
func (m *ChannelMetrics) BytesSent() uint64        { return m.bytesSent.Load() }
func (m *ChannelMetrics) BytesReceived() uint64    { return m.bytesReceived.Load() }
func (m *ChannelMetrics) SendErrors() uint64       { return m.sendErrors.Load() }
func (m *ChannelMetrics) ReceiveErrors() uint64    { return m.receiveErrors.Load() }
func (m *ChannelMetrics) QueueDepth() uint64       { return m.queueDepth.Load() }
func (m *ChannelMetrics) PeakQueueDepth() uint64   { return m.peakQueueDepth.Load() }

// AvgLatencyUs returns the mean recorded latency in microseconds, or 0 if
// no samples have been recorded.
func (m *ChannelMetrics) AvgLatencyUs() uint64 {
	count := m.latencyCount.Load()
	if count == 0 {
		return 0
	}
	return m.latencySumUs.Load() / count
}

// MinLatencyUs returns the minimum recorded latency, and false if no
// samples have been recorded.
func (m *ChannelMetrics) MinLatencyUs() (uint64, bool) {
	min := m.minLatencyUs.Load()
	if min == math.MaxUint64 {
		return 0, false
	}
	return min, true
}

// MaxLatencyUs returns the maximum recorded latency in microseconds.
func (m *ChannelMetrics) MaxLatencyUs() uint64 { return m.maxLatencyUs.Load() }

// LatencyPercentile returns the p-th percentile latency in microseconds
// (e.g. 99 for p99) computed over the bounded reservoir of recent samples.
func (m *ChannelMetrics) LatencyPercentile(p uint8) uint64 {
	return m.histogram.percentile(p)
}

// Elapsed returns the time since the first recorded send or receive.
func (m *ChannelMetrics) Elapsed() time.Duration {
	if m.startTime.IsZero() {
		return 0
	}
	return time.Since(m.startTime)
}

func (m *ChannelMetrics) throughput(count uint64) float64 {
	secs := m.Elapsed().Seconds()
	if secs == 0 {
		return 0
	}
	return float64(count) / secs
}

// SendThroughput returns messages sent per second since the channel's first
// activity.
func (m *ChannelMetrics) SendThroughput() float64 { return m.throughput(m.MessagesSent()) }

// RecvThroughput returns messages received per second.
func (m *ChannelMetrics) RecvThroughput() float64 { return m.throughput(m.MessagesReceived()) }

// SendBandwidth returns bytes sent per second.
func (m *ChannelMetrics) SendBandwidth() float64 { return m.throughput(m.BytesSent()) }

// RecvBandwidth returns bytes received per second.
func (m *ChannelMetrics) RecvBandwidth() float64 { return m.throughput(m.BytesReceived()) }

// Reset zeroes every counter and restarts the elapsed-time clock.
func (m *ChannelMetrics) Reset() {
	m.messagesSent.Store(0)
	m.messagesReceived.Store(0)
	m.bytesSent.Store(0)
	m.bytesReceived.Store(0)
	m.sendErrors.Store(0)
	m.receiveErrors.Store(0)
	m.queueDepth.Store(0)
	m.peakQueueDepth.Store(0)
	m.latencySumUs.Store(0)
	m.latencyCount.Store(0)
	m.minLatencyUs.Store(math.MaxUint64)
	m.maxLatencyUs.Store(0)
	m.histogram.reset()
	m.startOnce = sync.Once{}
	m.startTime = time.Time{}
}

func (m *ChannelMetrics) ensureStarted() {
	m.startOnce.Do(func() { m.startTime = time.Now() })
}
