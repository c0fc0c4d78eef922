//go:build unix

package platform

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/ipckit-go/ipckit/internal/ipcerr"
)

// shmDir is where POSIX shared-memory objects live on Linux and the BSDs.
// Opening a file here with O_CREAT|O_EXCL is exactly what glibc's
// shm_open does under the hood, which lets us avoid CGO entirely (see
// DESIGN.md for the full rationale).
const shmDir = "/dev/shm"

// SharedRegion is a named block of memory mapped into this process.
// Coordination of concurrent reads/writes is the caller's responsibility;
// the region only enforces the [0, size) bounds invariant.
type SharedRegion struct {
	name    string
	size    int
	isOwner bool
	fd      int
	data    []byte
}

func shmPath(name string) string {
	return filepath.Join(shmDir, name)
}

// CreateSharedRegion creates a new named region of exactly size bytes.
// Fails with AlreadyExists if the name is taken.
func CreateSharedRegion(name string, size int) (*SharedRegion, error) {
	path := shmPath(name)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0o666)
	if err != nil {
		if err == unix.EEXIST {
			return nil, ipcerr.AlreadyExists(name)
		}
		if err == unix.EACCES {
			return nil, ipcerr.PermissionDenied(err)
		}
		return nil, ipcerr.Platform(err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, ipcerr.Platform(err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, ipcerr.Platform(err)
	}

	return &SharedRegion{name: name, size: size, isOwner: true, fd: fd, data: data}, nil
}

// OpenSharedRegion maps an existing region, reading its size from the OS.
func OpenSharedRegion(name string) (*SharedRegion, error) {
	path := shmPath(name)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		if err == unix.ENOENT {
			return nil, ipcerr.NotFound(name)
		}
		if err == unix.EACCES {
			return nil, ipcerr.PermissionDenied(err)
		}
		return nil, ipcerr.Platform(err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, ipcerr.Platform(err)
	}
	size := int(st.Size)

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, ipcerr.Platform(err)
	}

	return &SharedRegion{name: name, size: size, isOwner: false, fd: fd, data: data}, nil
}

// Size returns the region's byte length.
func (r *SharedRegion) Size() int { return r.size }

// Write copies data into the region starting at offset. Fails with
// OutOfBounds if the write would exceed [0, size).
func (r *SharedRegion) Write(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > r.size {
		return ipcerr.OutOfBounds(offset, len(data), r.size)
	}
	copy(r.data[offset:offset+len(data)], data)
	return nil
}

// Read returns a copy of length bytes starting at offset.
func (r *SharedRegion) Read(offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > r.size {
		return nil, ipcerr.OutOfBounds(offset, length, r.size)
	}
	out := make([]byte, length)
	copy(out, r.data[offset:offset+length])
	return out, nil
}

// ReadInto copies length bytes starting at offset into buf.
func (r *SharedRegion) ReadInto(offset int, buf []byte) error {
	if offset < 0 || offset+len(buf) > r.size {
		return ipcerr.OutOfBounds(offset, len(buf), r.size)
	}
	copy(buf, r.data[offset:offset+len(buf)])
	return nil
}

// Close unmaps the region and closes the descriptor. If this holder is the
// owner, it additionally unlinks the OS name so no future OpenSharedRegion
// can find it. Double-close is a no-op.
func (r *SharedRegion) Close() error {
	if r.data == nil {
		return nil
	}
	var firstErr error
	if err := unix.Munmap(r.data); err != nil {
		firstErr = fmt.Errorf("munmap %s: %w", r.name, err)
	}
	r.data = nil
	if err := unix.Close(r.fd); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close %s: %w", r.name, err)
	}
	if r.isOwner {
		if err := unix.Unlink(shmPath(r.name)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unlink %s: %w", r.name, err)
		}
	}
	return firstErr
}
