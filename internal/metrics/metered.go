package metrics

import (
	"encoding/json"
	"time"

	"github.com/ipckit-go/ipckit/internal/framed"
	"github.com/ipckit-go/ipckit/internal/ipcerr"
)

// MeteredChannel wraps a framed.Channel, recording send/recv counts, bytes,
// latency, and errors on an owned ChannelMetrics for every operation.
type MeteredChannel struct {
	inner   *framed.Channel
	metrics *ChannelMetrics
}

// NewMetered wraps an existing framed.Channel with metrics tracking.
func NewMetered(inner *framed.Channel) *MeteredChannel {
	return &MeteredChannel{inner: inner, metrics: New()}
}

// Metrics returns the channel's metrics collector.
func (c *MeteredChannel) Metrics() *ChannelMetrics { return c.metrics }

// Inner returns the wrapped, unmetered channel.
func (c *MeteredChannel) Inner() *framed.Channel { return c.inner }

// Send frames and sends payload, recording bytes and latency on success and
// incrementing the send-error counter on failure.
func (c *MeteredChannel) Send(payload []byte) error {
	start := time.Now()
	err := c.inner.Send(payload)
	if err != nil {
		c.metrics.RecordSendError()
		return err
	}
	c.metrics.RecordSend(len(payload))
	c.metrics.RecordLatency(time.Since(start))
	return nil
}

// Recv reads the next frame, recording bytes and latency on success and
// incrementing the receive-error counter on failure.
func (c *MeteredChannel) Recv() ([]byte, error) {
	start := time.Now()
	payload, err := c.inner.Recv()
	if err != nil {
		c.metrics.RecordRecvError()
		return nil, err
	}
	c.metrics.RecordRecv(len(payload))
	c.metrics.RecordLatency(time.Since(start))
	return payload, nil
}

// SendJSON marshals and sends v, with the same metrics bookkeeping as Send.
func (c *MeteredChannel) SendJSON(v any) error {
	start := time.Now()
	data, err := json.Marshal(v)
	if err != nil {
		err = ipcerr.InvalidData(err)
	} else {
		err = c.inner.Send(data)
	}
	if err != nil {
		c.metrics.RecordSendError()
		return err
	}
	c.metrics.RecordSend(len(data))
	c.metrics.RecordLatency(time.Since(start))
	return nil
}

// RecvJSON reads a frame and unmarshals it into v, with the same metrics
// bookkeeping as Recv.
func (c *MeteredChannel) RecvJSON(v any) error {
	start := time.Now()
	payload, err := c.inner.Recv()
	if err == nil {
		if uerr := json.Unmarshal(payload, v); uerr != nil {
			err = ipcerr.InvalidData(uerr)
		}
	}
	if err != nil {
		c.metrics.RecordRecvError()
		return err
	}
	c.metrics.RecordRecv(len(payload))
	c.metrics.RecordLatency(time.Since(start))
	return nil
}

// Close closes the wrapped channel.
func (c *MeteredChannel) Close() error { return c.inner.Close() }

// MeteredGraceful wraps a framed.GracefulChannel with the same metrics
// bookkeeping as MeteredChannel, while preserving the graceful shutdown
// protocol (operations still go through the inner channel's OperationGuard).
type MeteredGraceful struct {
	inner   *framed.GracefulChannel
	metrics *ChannelMetrics
}

// NewMeteredGraceful wraps an existing framed.GracefulChannel with metrics
// tracking.
func NewMeteredGraceful(inner *framed.GracefulChannel) *MeteredGraceful {
	return &MeteredGraceful{inner: inner, metrics: New()}
}

// Metrics returns the channel's metrics collector.
func (c *MeteredGraceful) Metrics() *ChannelMetrics { return c.metrics }

// Inner returns the wrapped graceful channel.
func (c *MeteredGraceful) Inner() *framed.GracefulChannel { return c.inner }

// Send frames and sends payload through the graceful channel.
func (c *MeteredGraceful) Send(payload []byte) error {
	start := time.Now()
	err := c.inner.Send(payload)
	if err != nil {
		c.metrics.RecordSendError()
		return err
	}
	c.metrics.RecordSend(len(payload))
	c.metrics.RecordLatency(time.Since(start))
	return nil
}

// Recv reads the next frame through the graceful channel.
func (c *MeteredGraceful) Recv() ([]byte, error) {
	start := time.Now()
	payload, err := c.inner.Recv()
	if err != nil {
		c.metrics.RecordRecvError()
		return nil, err
	}
	c.metrics.RecordRecv(len(payload))
	c.metrics.RecordLatency(time.Since(start))
	return payload, nil
}

// Shutdown begins graceful shutdown on the inner channel.
func (c *MeteredGraceful) Shutdown() { c.inner.Shutdown() }

// Drain blocks until every in-flight operation on the inner channel
// completes.
func (c *MeteredGraceful) Drain() { c.inner.Drain() }

// ShutdownTimeout shuts down and drains the inner channel, bounded by d.
func (c *MeteredGraceful) ShutdownTimeout(d time.Duration) error {
	return c.inner.ShutdownTimeout(d)
}

// Close closes the inner channel.
func (c *MeteredGraceful) Close() error { return c.inner.Close() }
