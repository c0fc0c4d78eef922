//go:build windows

package platform

import "github.com/ipckit-go/ipckit/internal/ipcerr"

// SharedRegion is a placeholder on Windows: creating, opening, reading and
// writing all return a PlatformError, and no file mapping is made. This
// repository's example pack carries no Windows file-mapping dependency
// (no pack example imports one), so the Windows path is left as an honest,
// documented gap rather than a fabricated binding — see DESIGN.md.
type SharedRegion struct {
	name string
	size int
}

func CreateSharedRegion(name string, size int) (*SharedRegion, error) {
	return nil, errUnimplementedWindowsShm
}

func OpenSharedRegion(name string) (*SharedRegion, error) {
	return nil, errUnimplementedWindowsShm
}

func (r *SharedRegion) Size() int                              { return r.size }
func (r *SharedRegion) Write(offset int, data []byte) error     { return errUnimplementedWindowsShm }
func (r *SharedRegion) Read(offset, length int) ([]byte, error) { return nil, errUnimplementedWindowsShm }
func (r *SharedRegion) ReadInto(offset int, buf []byte) error   { return errUnimplementedWindowsShm }
func (r *SharedRegion) Close() error                            { return nil }

var errUnimplementedWindowsShm = ipcerr.New(ipcerr.KindPlatformError, "shared memory is not yet implemented on windows")
