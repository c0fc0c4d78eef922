//go:build unix

package localsocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSocketCommunication(t *testing.T) {
	name := "ipckit-test-socket-comm"

	ln, err := Listen(name)
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 5)
		conn.Read(buf)
		conn.Write([]byte("pong"))
	}()

	time.Sleep(100 * time.Millisecond)

	client, err := Connect(name)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf))

	<-serverDone
}

func TestConnectBeforeListenFails(t *testing.T) {
	_, err := Connect("ipckit-test-socket-nonexistent")
	assert.Error(t, err)
}
