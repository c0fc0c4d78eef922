// Package filechannel implements the frontend<->backend JSON-file mailbox
// protocol: a directory holding exactly two append-only JSON array files,
// one per writer direction, with atomic temp-file-then-rename writes and
// monotonic per-writer message ids.
package filechannel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ipckit-go/ipckit/internal/ipcerr"
)

// Kind identifies the role of a Message.
type Kind string

const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
	KindEvent    Kind = "event"
)

// Message is one record in a mailbox file, per spec §6's wire shape.
type Message struct {
	ID          uint64 `json:"id"`
	TimestampMs int64  `json:"timestamp"`
	Type        Kind   `json:"type"`
	Method      string `json:"method,omitempty"`
	Payload     any    `json:"payload,omitempty"`
	ReplyTo     *uint64 `json:"reply_to,omitempty"`
	Error       string `json:"error,omitempty"`
}

const (
	backendToFrontend = "backend_to_frontend.json"
	frontendToBackend = "frontend_to_backend.json"
)

// Role identifies which side of the mailbox this process writes.
type Role int

const (
	RoleBackend Role = iota
	RoleFrontend
)

// Mailbox is a single writer's view of a two-file directory: it appends to
// its own outbox and watermarks reads from the peer's inbox.
type Mailbox struct {
	instanceID string
	dir        string
	role       Role

	mu       sync.Mutex
	nextID   atomic.Uint64
	lastSeen uint64
}

// Open binds a Mailbox to dir for the given role. The directory must
// already exist; each file is created lazily by the first write to it
// (Send or Clear). Reading a file that does not exist yet yields no records.
func Open(dir string, role Role) *Mailbox {
	return &Mailbox{
		instanceID: uuid.NewString(),
		dir:        dir,
		role:       role,
	}
}

// InstanceID returns a per-Mailbox correlation id suitable for log lines; it
// has no bearing on message ids, which stay u64 and monotonic per spec.
func (m *Mailbox) InstanceID() string { return m.instanceID }

func (m *Mailbox) outboxPath() string {
	if m.role == RoleBackend {
		return filepath.Join(m.dir, backendToFrontend)
	}
	return filepath.Join(m.dir, frontendToBackend)
}

func (m *Mailbox) inboxPath() string {
	if m.role == RoleBackend {
		return filepath.Join(m.dir, frontendToBackend)
	}
	return filepath.Join(m.dir, backendToFrontend)
}

// Send appends a new message to this mailbox's outbox and returns the
// message's assigned id. ids are u64 and strictly monotonic per writer
// instance (not a UUID, per spec — see DESIGN.md for the divergence from
// the original Rust/Python reference, which used UUIDv4).
func (m *Mailbox) Send(kind Kind, method string, payload any, replyTo *uint64, errMsg string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID.Add(1)
	msg := Message{
		ID:          id,
		TimestampMs: time.Now().UnixMilli(),
		Type:        kind,
		Method:      method,
		Payload:     payload,
		ReplyTo:     replyTo,
		Error:       errMsg,
	}

	records, err := readRecords(m.outboxPath())
	if err != nil {
		return 0, err
	}
	records = append(records, msg)

	if err := writeAtomic(m.outboxPath(), records); err != nil {
		return 0, err
	}
	return id, nil
}

// Request is a convenience wrapper around Send for kind=request.
func (m *Mailbox) Request(method string, payload any) (uint64, error) {
	return m.Send(KindRequest, method, payload, nil, "")
}

// Respond is a convenience wrapper around Send for kind=response.
func (m *Mailbox) Respond(replyTo uint64, payload any, errMsg string) (uint64, error) {
	return m.Send(KindResponse, "", payload, &replyTo, errMsg)
}

// Publish is a convenience wrapper around Send for kind=event.
func (m *Mailbox) Publish(method string, payload any) (uint64, error) {
	return m.Send(KindEvent, method, payload, nil, "")
}

// Receive returns every record in the peer's inbox whose id exceeds the
// highest previously seen id from that writer, and advances the watermark.
// Reads tolerate a writer-in-progress atomic rename: if the file briefly
// doesn't exist or fails to parse mid-rename, Receive returns an empty
// slice rather than an error.
func (m *Mailbox) Receive() ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := readRecordsTolerant(m.inboxPath())
	if err != nil {
		return nil, err
	}

	var fresh []Message
	maxID := m.lastSeen
	for _, r := range records {
		if r.ID > m.lastSeen {
			fresh = append(fresh, r)
			if r.ID > maxID {
				maxID = r.ID
			}
		}
	}
	m.lastSeen = maxID
	return fresh, nil
}

// WaitResponse polls the inbox at a bounded interval until a record with
// ReplyTo == id arrives or the deadline elapses.
func (m *Mailbox) WaitResponse(id uint64, timeout time.Duration) (*Message, error) {
	deadline := time.Now().Add(timeout)
	const pollInterval = 20 * time.Millisecond

	for {
		msgs, err := m.Receive()
		if err != nil {
			return nil, err
		}
		for i := range msgs {
			if msgs[i].ReplyTo != nil && *msgs[i].ReplyTo == id {
				return &msgs[i], nil
			}
		}

		if time.Now().After(deadline) {
			return nil, ipcerr.Timeout(fmt.Sprintf("wait_response: no reply to %d within %s", id, timeout))
		}
		time.Sleep(pollInterval)
	}
}

// Clear truncates both mailbox files and resets the read watermark.
func (m *Mailbox) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSeen = 0
	if err := writeAtomic(m.outboxPath(), []Message{}); err != nil {
		return err
	}
	return writeAtomic(m.inboxPath(), []Message{})
}

func readRecords(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ipcerr.IO(err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []Message
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, ipcerr.InvalidData(err)
	}
	return records, nil
}

// readRecordsTolerant is like readRecords but swallows a transient
// not-exist or parse failure, since the peer may be mid-rename.
func readRecordsTolerant(path string) ([]Message, error) {
	records, err := readRecords(path)
	if err != nil && ipcerr.Is(err, ipcerr.KindInvalidData) {
		return nil, nil
	}
	return records, err
}

func writeAtomic(path string, records []Message) error {
	data, err := json.Marshal(records)
	if err != nil {
		return ipcerr.InvalidData(err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ipcerr.IO(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ipcerr.IO(err)
	}
	return nil
}
