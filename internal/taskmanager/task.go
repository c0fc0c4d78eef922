package taskmanager

import (
	"sync"
	"time"

	"github.com/ipckit-go/ipckit/internal/eventbus"
	"github.com/ipckit-go/ipckit/internal/ipcerr"
)

// Status is a task's position in the lifecycle FSM described in spec §4.7.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether s is one of the three terminal states.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IsActive reports whether a task in this state is still doing work.
func (s Status) IsActive() bool {
	return s == StatusRunning || s == StatusPaused
}

// Info is a point-in-time snapshot of a task's public state.
type Info struct {
	ID              string
	Name            string
	TaskType        string
	Status          Status
	Progress        uint8
	ProgressMessage string
	CreatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
	Metadata        map[string]any
	Labels          map[string]string
	Error           string
	Result          any
}

// Task is the manager's internal, lockable state for one task. Access from
// outside the package goes through Handle.
type task struct {
	mu   sync.RWMutex
	info Info
	tok  *CancellationToken
	pub  *eventbus.Bus
}

// allowedTransitions encodes the FSM in spec §4.7:
//
//	Pending -> Running (start) | Pending -> Cancelled (cancel before start)
//	Running -> Paused (pause)  | Paused -> Running (resume)
//	Running|Paused -> Completed (complete) | Running|Paused -> Failed (fail)
//	Running|Paused|Pending -> Cancelled (cancel)
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {StatusRunning: true, StatusCancelled: true},
	StatusRunning: {StatusPaused: true, StatusCompleted: true, StatusFailed: true, StatusCancelled: true},
	StatusPaused:  {StatusRunning: true, StatusCompleted: true, StatusFailed: true, StatusCancelled: true},
}

func (t *task) transition(to Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := t.info.Status
	if !allowedTransitions[from][to] {
		return ipcerr.InvalidState("cannot transition task from " + string(from) + " to " + string(to))
	}
	t.info.Status = to
	return nil
}

// Handle is a cheap-to-clone, thread-safe reference to a managed task. Only
// the owning writer path (start/progress/complete/fail/cancel) is expected
// to be used once at a time per transition, per spec §4.7.
type Handle struct {
	id string
	t  *task
}

// ID returns the task's unique identifier.
func (h *Handle) ID() string { return h.id }

// Info returns a snapshot of the task's current public state.
func (h *Handle) Info() Info {
	h.t.mu.RLock()
	defer h.t.mu.RUnlock()
	return h.t.info
}

// Status returns the task's current state.
func (h *Handle) Status() Status {
	h.t.mu.RLock()
	defer h.t.mu.RUnlock()
	return h.t.info.Status
}

// Progress returns the task's current progress percentage.
func (h *Handle) Progress() uint8 {
	h.t.mu.RLock()
	defer h.t.mu.RUnlock()
	return h.t.info.Progress
}

// CancelToken returns the task's cancellation token.
func (h *Handle) CancelToken() *CancellationToken { return h.t.tok }

// IsCancelled is a convenience wrapper for CancelToken().IsCancelled().
func (h *Handle) IsCancelled() bool { return h.t.tok.IsCancelled() }

// Start transitions Pending -> Running, recording StartedAt and publishing
// task.started.
func (h *Handle) Start() error {
	if err := h.t.transition(StatusRunning); err != nil {
		return err
	}
	now := time.Now()
	h.t.mu.Lock()
	h.t.info.StartedAt = &now
	h.t.mu.Unlock()
	h.publish(eventbus.TaskStarted, nil)
	return nil
}

// Pause transitions Running -> Paused.
func (h *Handle) Pause() error {
	if err := h.t.transition(StatusPaused); err != nil {
		return err
	}
	h.publish(eventbus.TaskPaused, nil)
	return nil
}

// Resume transitions Paused -> Running.
func (h *Handle) Resume() error {
	if err := h.t.transition(StatusRunning); err != nil {
		return err
	}
	h.publish(eventbus.TaskResumed, nil)
	return nil
}

// SetProgress is accepted only while the task is Running or Paused;
// progress is clamped to [0,100] and publishes task.progress. The manager
// does not enforce monotonicity — callers are expected to keep it
// non-decreasing.
func (h *Handle) SetProgress(progress int, message string) error {
	h.t.mu.Lock()
	if !h.t.info.Status.IsActive() {
		status := h.t.info.Status
		h.t.mu.Unlock()
		return ipcerr.InvalidState("cannot set progress on a task in state " + string(status))
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	h.t.info.Progress = uint8(progress)
	h.t.info.ProgressMessage = message
	h.t.mu.Unlock()

	h.publish(eventbus.TaskProgress, map[string]any{"progress": progress, "message": message})
	return nil
}

// Complete transitions Running|Paused -> Completed, recording the result
// and FinishedAt, and publishes task.completed.
func (h *Handle) Complete(result any) error {
	if err := h.t.transition(StatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	h.t.mu.Lock()
	h.t.info.FinishedAt = &now
	h.t.info.Progress = 100
	h.t.info.Result = result
	h.t.mu.Unlock()
	h.publish(eventbus.TaskCompleted, result)
	return nil
}

// Fail transitions Running|Paused -> Failed, recording the error and
// FinishedAt, and publishes task.failed.
func (h *Handle) Fail(errMsg string) error {
	if err := h.t.transition(StatusFailed); err != nil {
		return err
	}
	now := time.Now()
	h.t.mu.Lock()
	h.t.info.FinishedAt = &now
	h.t.info.Error = errMsg
	h.t.mu.Unlock()
	h.publish(eventbus.TaskFailed, errMsg)
	return nil
}

// Cancel transitions Pending|Running|Paused -> Cancelled and sets the
// cancellation token. Unlike the original Rust reference, this validates
// the current state: cancelling an already-terminal task fails
// InvalidState instead of silently overwriting it — see DESIGN.md
// divergence #9.
func (h *Handle) Cancel() error {
	if err := h.t.transition(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	h.t.mu.Lock()
	h.t.info.FinishedAt = &now
	h.t.mu.Unlock()
	h.t.tok.Cancel()
	h.publish(eventbus.TaskCancelled, nil)
	return nil
}

func (h *Handle) publish(eventType string, data any) {
	id := h.id
	h.t.pub.Publish(eventType, &id, data)
}
