//go:build unix

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedMemoryCreateAndWrite(t *testing.T) {
	region, err := CreateSharedRegion("ipckit-test-create-write", 4096)
	require.NoError(t, err)
	defer region.Close()

	require.NoError(t, region.Write(0, []byte("hello")))

	opener, err := OpenSharedRegion("ipckit-test-create-write")
	require.NoError(t, err)
	defer opener.Close()

	data, err := opener.Read(0, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestSharedMemoryBoundary(t *testing.T) {
	region, err := CreateSharedRegion("ipckit-test-boundary", 100)
	require.NoError(t, err)
	defer region.Close()

	require.NoError(t, region.Write(90, make([]byte, 10)))

	_, err = region.Read(90, 20)
	assert.Error(t, err)
}

func TestCreateSharedRegionAlreadyExists(t *testing.T) {
	region, err := CreateSharedRegion("ipckit-test-exists", 64)
	require.NoError(t, err)
	defer region.Close()

	_, err = CreateSharedRegion("ipckit-test-exists", 64)
	assert.Error(t, err)
}
