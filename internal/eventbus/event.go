// Package eventbus implements a typed, in-process publish/subscribe core:
// a ring-buffered history, bounded per-subscriber queues, and a
// slow-consumer policy per subscriber.
package eventbus

import (
	"strings"
	"time"
)

// Event is one published occurrence. id is strictly monotonic per Bus
// instance (not process-wide — see DESIGN.md for the divergence from the
// original Rust reference, which used a file-scoped global counter).
type Event struct {
	ID         uint64    `json:"id"`
	Timestamp  time.Time `json:"-"`
	EventType  string    `json:"event_type"`
	ResourceID *string   `json:"resource_id,omitempty"`
	Data       any       `json:"data,omitempty"`
}

// TimestampSeconds renders Timestamp the way the wire envelope in spec §6
// requires: seconds since epoch, as a float.
func (e Event) TimestampSeconds() float64 {
	return float64(e.Timestamp.UnixNano()) / 1e9
}

// Reserved dotted event-type prefixes.
const (
	TaskCreated   = "task.created"
	TaskStarted   = "task.started"
	TaskProgress  = "task.progress"
	TaskCompleted = "task.completed"
	TaskFailed    = "task.failed"
	TaskCancelled = "task.cancelled"
	TaskPaused    = "task.paused"
	TaskResumed   = "task.resumed"

	LogStdout = "log.stdout"
	LogStderr = "log.stderr"
	LogInfo   = "log.info"
	LogWarn   = "log.warn"
	LogError  = "log.error"
)

// Filter selects which published events reach a subscriber and which
// history entries a query returns.
type Filter struct {
	EventTypes  []string
	ResourceIDs []string
	Since       *time.Time
	Until       *time.Time
}

// Matches reports whether e satisfies f. An empty Filter matches
// everything. event_type patterns support a single trailing '*' wildcard
// as a prefix match; otherwise the comparison is exact equality. Since is
// inclusive, Until is exclusive, per spec §4.6.
func (f Filter) Matches(e Event) bool {
	if len(f.EventTypes) > 0 && !matchesAnyType(f.EventTypes, e.EventType) {
		return false
	}
	if len(f.ResourceIDs) > 0 {
		if e.ResourceID == nil || !containsString(f.ResourceIDs, *e.ResourceID) {
			return false
		}
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !e.Timestamp.Before(*f.Until) {
		return false
	}
	return true
}

func matchesAnyType(patterns []string, eventType string) bool {
	for _, p := range patterns {
		if matchesType(p, eventType) {
			return true
		}
	}
	return false
}

func matchesType(pattern, eventType string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(eventType, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == eventType
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
