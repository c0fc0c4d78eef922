package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventBusFiltering grounds spec scenario 5: buffer=4, drop_oldest,
// filter "task.*". Publish order: task.started, task.progress, misc.noise,
// task.progress, task.progress, task.completed — five events match
// "task.*" (misc.noise does not). With a buffer of 4, the fifth matching
// event (task.completed) evicts the front of the queue (task.started) and
// is pushed on, leaving the three task.progress events plus task.completed.
func TestEventBusFiltering(t *testing.T) {
	bus := New(Config{HistorySize: 1000, SubscriberBuffer: 4, SlowConsumer: DropOldest}, nil)
	sub := bus.Subscribe(Filter{EventTypes: []string{"task.*"}})
	defer sub.Unsubscribe()

	bus.Publish(TaskStarted, nil, nil)
	bus.Publish(TaskProgress, nil, 1)
	bus.Publish("misc.noise", nil, nil)
	bus.Publish(TaskProgress, nil, 2)
	bus.Publish(TaskProgress, nil, 3)
	bus.Publish(TaskCompleted, nil, nil)

	got := sub.Drain()
	require.Len(t, got, 4)
	assert.Equal(t, TaskProgress, got[0].EventType)
	assert.Equal(t, 1, got[0].Data)
	assert.Equal(t, TaskProgress, got[1].EventType)
	assert.Equal(t, 2, got[1].Data)
	assert.Equal(t, TaskProgress, got[2].EventType)
	assert.Equal(t, 3, got[2].Data)
	assert.Equal(t, TaskCompleted, got[3].EventType)
}

func TestDropNewestCountsDropped(t *testing.T) {
	bus := New(Config{SubscriberBuffer: 2, SlowConsumer: DropNewest}, nil)
	sub := bus.Subscribe(Filter{})
	defer sub.Unsubscribe()

	bus.Publish("a", nil, nil)
	bus.Publish("b", nil, nil)
	bus.Publish("c", nil, nil) // queue full, dropped

	assert.Equal(t, uint64(1), sub.Dropped())
	got := sub.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].EventType)
	assert.Equal(t, "b", got[1].EventType)
}

func TestBlockPolicyBackpressuresPublisher(t *testing.T) {
	bus := New(Config{SubscriberBuffer: 1, SlowConsumer: Block}, nil)
	sub := bus.Subscribe(Filter{})
	defer sub.Unsubscribe()

	bus.Publish("a", nil, nil)

	published := make(chan struct{})
	go func() {
		bus.Publish("b", nil, nil) // blocks until "a" is consumed
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("publish under Block returned before subscriber drained capacity")
	case <-time.After(50 * time.Millisecond):
	}

	ev, ok := sub.Recv()
	require.True(t, ok)
	assert.Equal(t, "a", ev.EventType)

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publish under Block did not unblock after capacity freed")
	}
}

func TestHistoryRetainsOnlyMostRecentN(t *testing.T) {
	bus := New(Config{HistorySize: 3, SubscriberBuffer: 256}, nil)

	for i := 0; i < 5; i++ {
		bus.Publish("x", nil, i)
	}

	history := bus.History(Filter{})
	require.Len(t, history, 3)
	assert.Equal(t, 2, history[0].Data)
	assert.Equal(t, 4, history[2].Data)
}

func TestFilterUntilIsExclusive(t *testing.T) {
	bus := New(DefaultConfig(), nil)
	event := bus.Publish("x", nil, nil)

	exact := event.Timestamp
	history := bus.History(Filter{Until: &exact})
	assert.Empty(t, history, "until bound must be exclusive")

	after := exact.Add(time.Millisecond)
	history = bus.History(Filter{Until: &after})
	assert.Len(t, history, 1)
}

func TestFilterSinceIsInclusive(t *testing.T) {
	bus := New(DefaultConfig(), nil)
	event := bus.Publish("x", nil, nil)

	exact := event.Timestamp
	history := bus.History(Filter{Since: &exact})
	assert.Len(t, history, 1, "since bound must be inclusive")
}

func TestEventIDsMonotonicPerBus(t *testing.T) {
	bus := New(DefaultConfig(), nil)
	e1 := bus.Publish("x", nil, nil)
	e2 := bus.Publish("y", nil, nil)
	assert.Equal(t, e1.ID+1, e2.ID)

	other := New(DefaultConfig(), nil)
	e3 := other.Publish("z", nil, nil)
	assert.Equal(t, uint64(1), e3.ID, "ids are monotonic per bus, not process-wide")
}
