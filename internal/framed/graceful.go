package framed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ipckit-go/ipckit/internal/ipcerr"
)

// ShutdownState is a shared atomic shutdown flag plus a pending-operation
// counter. It lets background producers detect termination at the
// granularity of a single send/recv call, without racing a teardown of the
// underlying transport (see spec §9, "background-thread-after-shutdown").
type ShutdownState struct {
	shutdown atomic.Bool
	pending  atomic.Int64

	mu   sync.Mutex
	cond *sync.Cond
}

// NewShutdownState returns a fresh, not-yet-shut-down state.
func NewShutdownState() *ShutdownState {
	s := &ShutdownState{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Shutdown sets the flag. Idempotent: calling it twice has the same effect
// as calling it once.
func (s *ShutdownState) Shutdown() {
	s.shutdown.Store(true)
}

// IsShutdown reports whether Shutdown has been called.
func (s *ShutdownState) IsShutdown() bool {
	return s.shutdown.Load()
}

// PendingCount returns the number of operations currently in flight.
func (s *ShutdownState) PendingCount() int64 {
	return s.pending.Load()
}

// OperationGuard is acquired before a single channel operation and released
// when it completes, guaranteeing release on every exit path via defer.
type OperationGuard struct {
	state *ShutdownState
}

// BeginOperation acquires a guard for one operation. If the state is
// already shut down, no counter increment happens and the call fails with
// ConnectionClosed. Otherwise the pending counter is incremented and then
// re-checked: if a shutdown raced in between the check and the increment,
// the increment is rolled back and the call still fails. This double check
// is what prevents a send from slipping through concurrently with
// shutdown().
func (s *ShutdownState) BeginOperation() (*OperationGuard, error) {
	if s.shutdown.Load() {
		return nil, ipcerr.ConnectionClosed()
	}

	s.pending.Add(1)

	if s.shutdown.Load() {
		s.releaseOne()
		return nil, ipcerr.ConnectionClosed()
	}

	return &OperationGuard{state: s}, nil
}

// Release decrements the pending counter and wakes any drain waiters once
// it reaches zero. Call it exactly once per guard (typically via defer):
// it is not idempotent, and every extra call decrements the counter again.
func (g *OperationGuard) Release() {
	g.state.releaseOne()
}

func (s *ShutdownState) releaseOne() {
	if s.pending.Add(-1) == 0 {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// Drain blocks until PendingCount reaches zero.
func (s *ShutdownState) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending.Load() != 0 {
		s.cond.Wait()
	}
}

// ShutdownTimeout shuts down and then drains, failing with Timeout if
// operations remain in flight once the deadline elapses.
func (s *ShutdownState) ShutdownTimeout(d time.Duration) error {
	s.Shutdown()

	done := make(chan struct{})
	go func() {
		s.Drain()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(d):
		return ipcerr.Timeout("shutdown_timeout: operations still pending")
	}
}

// GracefulChannel wraps a Channel with a ShutdownState so that every send
// and recv first acquires an OperationGuard. Once shut down, new
// operations fail immediately with ConnectionClosed instead of racing the
// underlying stream's teardown.
type GracefulChannel struct {
	inner *Channel
	state *ShutdownState
}

// NewGraceful wraps an existing Channel with shutdown semantics.
func NewGraceful(inner *Channel) *GracefulChannel {
	return &GracefulChannel{inner: inner, state: NewShutdownState()}
}

func (g *GracefulChannel) Send(payload []byte) error {
	guard, err := g.state.BeginOperation()
	if err != nil {
		return err
	}
	defer guard.Release()
	return g.inner.Send(payload)
}

func (g *GracefulChannel) Recv() ([]byte, error) {
	guard, err := g.state.BeginOperation()
	if err != nil {
		return nil, err
	}
	defer guard.Release()
	return g.inner.Recv()
}

func (g *GracefulChannel) SendJSON(v any) error {
	guard, err := g.state.BeginOperation()
	if err != nil {
		return err
	}
	defer guard.Release()
	return g.inner.SendJSON(v)
}

func (g *GracefulChannel) RecvJSON(v any) error {
	guard, err := g.state.BeginOperation()
	if err != nil {
		return err
	}
	defer guard.Release()
	return g.inner.RecvJSON(v)
}

// Shutdown marks the channel as shutting down; see ShutdownState.Shutdown.
func (g *GracefulChannel) Shutdown() { g.state.Shutdown() }

// IsShutdown reports whether Shutdown has been called.
func (g *GracefulChannel) IsShutdown() bool { return g.state.IsShutdown() }

// Drain blocks until every in-flight operation has completed.
func (g *GracefulChannel) Drain() { g.state.Drain() }

// ShutdownTimeout shuts down then drains with a deadline.
func (g *GracefulChannel) ShutdownTimeout(d time.Duration) error {
	return g.state.ShutdownTimeout(d)
}

// Close closes the underlying stream regardless of shutdown state; this is
// the escape hatch for unblocking a peer stuck in a blocking read, per
// spec §9.
func (g *GracefulChannel) Close() error { return g.inner.Close() }
