package taskmanager

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ipckit-go/ipckit/internal/eventbus"
	"github.com/ipckit-go/ipckit/internal/ipcerr"
	"github.com/ipckit-go/ipckit/internal/logging"
)

// Config configures a Manager.
type Config struct {
	RetentionPeriod time.Duration
	MaxConcurrent   int
	EventBusConfig  eventbus.Config
}

// DefaultConfig returns the spec-mandated defaults: 3600s retention, 100
// max concurrent tasks.
func DefaultConfig() Config {
	return Config{
		RetentionPeriod: time.Hour,
		MaxConcurrent:   100,
		EventBusConfig:  eventbus.DefaultConfig(),
	}
}

// Builder constructs a task before it is registered with a Manager.
type Builder struct {
	name     string
	taskType string
	metadata map[string]any
	labels   map[string]string
}

// NewBuilder starts a fluent task builder.
func NewBuilder(name, taskType string) *Builder {
	return &Builder{name: name, taskType: taskType}
}

// Metadata attaches one metadata key/value.
func (b *Builder) Metadata(key string, value any) *Builder {
	if b.metadata == nil {
		b.metadata = make(map[string]any)
	}
	b.metadata[key] = value
	return b
}

// Label attaches one label key/value.
func (b *Builder) Label(key, value string) *Builder {
	if b.labels == nil {
		b.labels = make(map[string]string)
	}
	b.labels[key] = value
	return b
}

// Filter selects tasks returned by Manager.List.
type Filter struct {
	Status     []Status
	TaskType   string
	Labels     map[string]string
	ActiveOnly bool
}

// Matches reports whether info satisfies f. A zero Filter matches every
// task.
func (f Filter) Matches(info Info) bool {
	if f.ActiveOnly && !info.Status.IsActive() {
		return false
	}
	if len(f.Status) > 0 && !statusIn(f.Status, info.Status) {
		return false
	}
	if f.TaskType != "" && f.TaskType != info.TaskType {
		return false
	}
	for k, v := range f.Labels {
		if info.Labels[k] != v {
			return false
		}
	}
	return true
}

func statusIn(list []Status, s Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Manager owns the task registry and an embedded event bus on which every
// lifecycle transition publishes.
type Manager struct {
	cfg    Config
	bus    *eventbus.Bus
	logger *logging.Logger

	mu     sync.RWMutex
	tasks  map[string]*task
	nextID atomic.Uint64
}

// New constructs a Manager with its own embedded event bus.
func New(cfg Config, logger *logging.Logger) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 100
	}
	if cfg.RetentionPeriod <= 0 {
		cfg.RetentionPeriod = time.Hour
	}
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Manager{
		cfg:    cfg,
		bus:    eventbus.New(cfg.EventBusConfig, logger),
		logger: logger,
		tasks:  make(map[string]*task),
	}
}

// EventBus returns the manager's embedded event bus for subscribing to
// task lifecycle events.
func (m *Manager) EventBus() *eventbus.Bus { return m.bus }

// Create registers a new Pending task from b. Fails with ResourceExhausted
// if doing so would exceed MaxConcurrent non-terminal tasks — a check
// absent from the original Rust reference; see DESIGN.md divergence #8.
func (m *Manager) Create(b *Builder) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := 0
	for _, t := range m.tasks {
		t.mu.RLock()
		terminal := t.info.Status.IsTerminal()
		t.mu.RUnlock()
		if !terminal {
			active++
		}
	}
	if active >= m.cfg.MaxConcurrent {
		return nil, ipcerr.ResourceExhausted(fmt.Sprintf("max_concurrent (%d) reached", m.cfg.MaxConcurrent))
	}

	id := fmt.Sprintf("task-%d", m.nextID.Add(1))
	t := &task{
		info: Info{
			ID:        id,
			Name:      b.name,
			TaskType:  b.taskType,
			Status:    StatusPending,
			CreatedAt: time.Now(),
			Metadata:  b.metadata,
			Labels:    b.labels,
		},
		tok: NewCancellationToken(),
		pub: m.bus,
	}
	m.tasks[id] = t

	m.bus.Publish(eventbus.TaskCreated, &id, nil)

	return &Handle{id: id, t: t}, nil
}

// Get returns a snapshot of the task's info.
func (m *Manager) Get(id string) (Info, error) {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return Info{}, ipcerr.NotFound(id)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.info, nil
}

// GetHandle returns a live Handle for the task.
func (m *Manager) GetHandle(id string) (*Handle, error) {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ipcerr.NotFound(id)
	}
	return &Handle{id: id, t: t}, nil
}

// List returns snapshots of every task matching filter.
func (m *Manager) List(filter Filter) []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.tasks))
	for _, t := range m.tasks {
		t.mu.RLock()
		info := t.info
		t.mu.RUnlock()
		if filter.Matches(info) {
			out = append(out, info)
		}
	}
	return out
}

// Cancel looks up the task and cancels it via its Handle, surfacing
// InvalidState if it is already terminal.
func (m *Manager) Cancel(id string) error {
	h, err := m.GetHandle(id)
	if err != nil {
		return err
	}
	return h.Cancel()
}

// Remove deletes a terminal task from the registry. Fails InvalidState if
// the task is not yet terminal.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return ipcerr.NotFound(id)
	}
	t.mu.RLock()
	terminal := t.info.Status.IsTerminal()
	t.mu.RUnlock()
	if !terminal {
		return ipcerr.InvalidState("cannot remove a non-terminal task")
	}
	delete(m.tasks, id)
	return nil
}

// Cleanup removes every terminal task whose FinishedAt is older than the
// configured retention period. Only terminal tasks age out: a task still
// Pending, Running or Paused is never collected. A cancelled task is
// terminal as soon as Cancel returns, whether or not its body has observed
// the token, so it ages out like any other terminal task.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, t := range m.tasks {
		t.mu.RLock()
		terminal := t.info.Status.IsTerminal()
		finishedAt := t.info.FinishedAt
		t.mu.RUnlock()

		if terminal && finishedAt != nil && now.Sub(*finishedAt) >= m.cfg.RetentionPeriod {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}
