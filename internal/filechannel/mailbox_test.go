package filechannel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestResponseRoundTrip(t *testing.T) {
	dir := t.TempDir()

	backend := Open(dir, RoleBackend)
	frontend := Open(dir, RoleFrontend)

	reqID, err := frontend.Request("ping", map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), reqID)

	msgs, err := backend.Receive()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, KindRequest, msgs[0].Type)
	assert.Equal(t, "ping", msgs[0].Method)

	_, err = backend.Respond(reqID, map[string]bool{"ok": true}, "")
	require.NoError(t, err)

	reply, err := frontend.WaitResponse(reqID, time.Second)
	require.NoError(t, err)
	assert.NotNil(t, reply.ReplyTo)
	assert.Equal(t, reqID, *reply.ReplyTo)
}

func TestReceiveOnlyReturnsMessagesAfterWatermark(t *testing.T) {
	dir := t.TempDir()
	backend := Open(dir, RoleBackend)
	frontend := Open(dir, RoleFrontend)

	_, err := frontend.Publish("evt.one", nil)
	require.NoError(t, err)

	first, err := backend.Receive()
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := backend.Receive()
	require.NoError(t, err)
	assert.Empty(t, second)

	_, err = frontend.Publish("evt.two", nil)
	require.NoError(t, err)

	third, err := backend.Receive()
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "evt.two", third[0].Method)
}

func TestWaitResponseTimesOut(t *testing.T) {
	dir := t.TempDir()
	frontend := Open(dir, RoleFrontend)

	_, err := frontend.WaitResponse(999, 50*time.Millisecond)
	assert.Error(t, err)
}

func TestClearResetsWatermarkAndFiles(t *testing.T) {
	dir := t.TempDir()
	backend := Open(dir, RoleBackend)
	frontend := Open(dir, RoleFrontend)

	_, err := frontend.Publish("evt", nil)
	require.NoError(t, err)
	_, err = backend.Receive()
	require.NoError(t, err)

	require.NoError(t, frontend.Clear())
	require.NoError(t, backend.Clear())

	msgs, err := backend.Receive()
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessageIDsAreMonotonicPerWriter(t *testing.T) {
	dir := t.TempDir()
	frontend := Open(dir, RoleFrontend)

	id1, err := frontend.Publish("a", nil)
	require.NoError(t, err)
	id2, err := frontend.Publish("b", nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)
}
