package taskmanager

import (
	"testing"
	"time"

	"github.com/ipckit-go/ipckit/internal/eventbus"
	"github.com/ipckit-go/ipckit/internal/ipcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTaskLifecycle grounds spec scenario 6.
func TestTaskLifecycle(t *testing.T) {
	mgr := New(DefaultConfig(), nil)

	h, err := mgr.Create(NewBuilder("T", "x"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, h.Status())

	require.NoError(t, h.Start())
	assert.Equal(t, StatusRunning, h.Status())

	require.NoError(t, h.SetProgress(50, "half"))
	assert.Equal(t, uint8(50), h.Progress())

	require.NoError(t, h.Complete(map[string]bool{"ok": true}))
	assert.Equal(t, StatusCompleted, h.Status())

	err = h.Cancel()
	assert.True(t, ipcerr.Is(err, ipcerr.KindInvalidState))

	h2, err := mgr.Create(NewBuilder("T2", "x"))
	require.NoError(t, err)
	require.NoError(t, h2.Cancel())
	assert.Equal(t, StatusCancelled, h2.Status())

	err = h2.Start()
	assert.True(t, ipcerr.Is(err, ipcerr.KindInvalidState))
}

func TestMaxConcurrentEnforced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 2
	mgr := New(cfg, nil)

	_, err := mgr.Create(NewBuilder("a", "x"))
	require.NoError(t, err)
	_, err = mgr.Create(NewBuilder("b", "x"))
	require.NoError(t, err)

	_, err = mgr.Create(NewBuilder("c", "x"))
	assert.True(t, ipcerr.Is(err, ipcerr.KindResourceExhausted))
}

func TestMaxConcurrentFreedByTerminalTask(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	mgr := New(cfg, nil)

	h, err := mgr.Create(NewBuilder("a", "x"))
	require.NoError(t, err)
	require.NoError(t, h.Start())
	require.NoError(t, h.Complete(nil))

	_, err = mgr.Create(NewBuilder("b", "x"))
	assert.NoError(t, err)
}

func TestProgressOnlyAcceptedWhileActive(t *testing.T) {
	mgr := New(DefaultConfig(), nil)
	h, err := mgr.Create(NewBuilder("a", "x"))
	require.NoError(t, err)

	err = h.SetProgress(50, "too early")
	assert.True(t, ipcerr.Is(err, ipcerr.KindInvalidState))
}

func TestProgressClampedTo100(t *testing.T) {
	mgr := New(DefaultConfig(), nil)
	h, err := mgr.Create(NewBuilder("a", "x"))
	require.NoError(t, err)
	require.NoError(t, h.Start())

	require.NoError(t, h.SetProgress(150, ""))
	assert.Equal(t, uint8(100), h.Progress())
}

func TestCancellationCascadesToChildren(t *testing.T) {
	parent := NewCancellationToken()
	child := parent.Child()
	grandchild := child.Child()

	assert.False(t, child.IsCancelled())
	parent.Cancel()

	assert.True(t, parent.IsCancelled())
	assert.True(t, child.IsCancelled())
	assert.True(t, grandchild.IsCancelled())
}

func TestCancelIsIdempotent(t *testing.T) {
	tok := NewCancellationToken()
	tok.Cancel()
	tok.Cancel()
	assert.True(t, tok.IsCancelled())
}

func TestRemoveRequiresTerminal(t *testing.T) {
	mgr := New(DefaultConfig(), nil)
	h, err := mgr.Create(NewBuilder("a", "x"))
	require.NoError(t, err)

	err = mgr.Remove(h.ID())
	assert.True(t, ipcerr.Is(err, ipcerr.KindInvalidState))

	require.NoError(t, h.Cancel())
	assert.NoError(t, mgr.Remove(h.ID()))
}

func TestCleanupRemovesOldTerminalTasks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetentionPeriod = time.Millisecond
	mgr := New(cfg, nil)

	h, err := mgr.Create(NewBuilder("a", "x"))
	require.NoError(t, err)
	require.NoError(t, h.Cancel())

	time.Sleep(5 * time.Millisecond)

	removed := mgr.Cleanup()
	assert.Equal(t, 1, removed)

	_, err = mgr.Get(h.ID())
	assert.True(t, ipcerr.Is(err, ipcerr.KindNotFound))
}

func TestLifecycleEventsPublished(t *testing.T) {
	mgr := New(DefaultConfig(), nil)
	sub := mgr.EventBus().Subscribe(eventbus.Filter{})
	defer sub.Unsubscribe()

	h, err := mgr.Create(NewBuilder("a", "x"))
	require.NoError(t, err)
	require.NoError(t, h.Start())
	require.NoError(t, h.SetProgress(10, ""))
	require.NoError(t, h.Complete(nil))

	events := sub.Drain()
	require.Len(t, events, 4)
	assert.Equal(t, "task.created", events[0].EventType)
	assert.Equal(t, "task.started", events[1].EventType)
	assert.Equal(t, "task.progress", events[2].EventType)
	assert.Equal(t, "task.completed", events[3].EventType)
}
