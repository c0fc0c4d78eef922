package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ipckit-go/ipckit/internal/logging"
)

// SlowConsumerPolicy governs what happens when a subscriber's queue is full
// at publish time.
type SlowConsumerPolicy int

const (
	// DropOldest evicts the front of the subscriber's queue and pushes the
	// new event. This is the default: telemetry/event streams are
	// typically best-effort (spec §9).
	DropOldest SlowConsumerPolicy = iota
	// DropNewest drops the incoming event and counts it against the
	// subscriber's dropped-event metric.
	DropNewest
	// Block makes the publisher wait until the subscriber reclaims
	// capacity. Couples publisher latency to the slowest subscriber.
	Block
)

// Config configures a Bus. Zero values are replaced with the documented
// defaults by New.
type Config struct {
	HistorySize      int
	SubscriberBuffer int
	SlowConsumer     SlowConsumerPolicy
}

// DefaultConfig returns the spec-mandated defaults: history 1000, buffer
// 256, drop_oldest.
func DefaultConfig() Config {
	return Config{HistorySize: 1000, SubscriberBuffer: 256, SlowConsumer: DropOldest}
}

// Bus is a typed in-process publish/subscribe core with ring-buffered
// history and bounded, filtered subscriber queues.
type Bus struct {
	cfg    Config
	logger *logging.Logger
	nextID atomic.Uint64

	mu          sync.RWMutex
	history     []Event
	subscribers map[*Subscriber]struct{}
}

// New constructs a Bus. Zero-valued fields in cfg fall back to
// DefaultConfig's values.
func New(cfg Config, logger *logging.Logger) *Bus {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 1000
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 256
	}
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Bus{
		cfg:         cfg,
		logger:      logger,
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// Publish assigns a monotonically increasing id (per this Bus) and the
// current timestamp, appends to the ring-buffer history (oldest evicted
// when full), and offers a copy to every subscriber whose filter matches.
// Publish never fails; enqueue failures are handled per the subscriber's
// slow-consumer policy and, for drop_newest, counted in that subscriber's
// metric.
func (b *Bus) Publish(eventType string, resourceID *string, data any) Event {
	event := Event{
		ID:         b.nextID.Add(1),
		Timestamp:  time.Now(),
		EventType:  eventType,
		ResourceID: resourceID,
		Data:       data,
	}

	b.mu.Lock()
	b.history = append(b.history, event)
	if len(b.history) > b.cfg.HistorySize {
		b.history = b.history[len(b.history)-b.cfg.HistorySize:]
	}
	subs := make([]*Subscriber, 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		if s.filter.Matches(event) {
			s.deliver(event)
		}
	}

	return event
}

// Subscribe registers a new Subscriber with the given filter. The returned
// Subscriber must eventually be closed via Unsubscribe to release it from
// the registry.
func (b *Bus) Subscribe(filter Filter) *Subscriber {
	sub := newSubscriber(b, filter, b.cfg.SubscriberBuffer, b.cfg.SlowConsumer)

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes sub from the registry and closes its queue, waking
// any blocked Recv with a closed-channel signal.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
	sub.close()
}

// History returns the retained ring-buffer entries matching filter, oldest
// first.
func (b *Bus) History(filter Filter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, len(b.history))
	for _, e := range b.history {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// SubscriberCount reports how many subscribers are currently registered.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
