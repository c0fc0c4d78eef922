package framed

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ipckit-go/ipckit/internal/ipcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownIsIdempotent(t *testing.T) {
	s := NewShutdownState()
	s.Shutdown()
	s.Shutdown()
	assert.True(t, s.IsShutdown())
}

func TestOperationAfterShutdownFails(t *testing.T) {
	s := NewShutdownState()
	s.Shutdown()

	_, err := s.BeginOperation()
	assert.True(t, ipcerr.Is(err, ipcerr.KindConnectionClosed))
	assert.Equal(t, int64(0), s.PendingCount())
}

func TestDrainWaitsForPending(t *testing.T) {
	s := NewShutdownState()
	guard, err := s.BeginOperation()
	require.NoError(t, err)

	drained := make(chan struct{})
	go func() {
		s.Drain()
		close(drained)
	}()

	select {
	case <-drained:
		t.Fatal("drain returned before pending operation released")
	case <-time.After(50 * time.Millisecond):
	}

	guard.Release()

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("drain did not return after release")
	}
	assert.Equal(t, int64(0), s.PendingCount())
}

func TestShutdownTimeoutFailsWhenOperationsRemain(t *testing.T) {
	s := NewShutdownState()
	_, err := s.BeginOperation()
	require.NoError(t, err)

	err = s.ShutdownTimeout(50 * time.Millisecond)
	assert.True(t, ipcerr.Is(err, ipcerr.KindTimeout))
}

// TestGracefulShutdownOrdering grounds spec scenario 4: a producer loops
// sending with no delay on a graceful channel; once 100 messages have been
// read on the peer, shutdown()/drain() are called on the *same* sending
// channel (matching "main thread... then shutdown(), then drain()" in the
// scenario); after drain, the next send from the producer fails with
// ConnectionClosed and the producer goroutine exits cleanly.
func TestGracefulShutdownOrdering(t *testing.T) {
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })

	client := NewGraceful(New(a))
	peer := New(b)

	var wg sync.WaitGroup
	wg.Add(1)

	producerErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		i := 0
		for {
			err := client.SendJSON(map[string]int{"i": i})
			if err != nil {
				producerErr <- err
				return
			}
			i++
		}
	}()

	for i := 0; i < 100; i++ {
		var msg map[string]int
		require.NoError(t, peer.RecvJSON(&msg))
	}

	client.Shutdown()
	client.Drain()

	assert.True(t, client.IsShutdown())

	select {
	case err := <-producerErr:
		assert.True(t, ipcerr.Is(err, ipcerr.KindConnectionClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not observe shutdown")
	}

	wg.Wait()
}
