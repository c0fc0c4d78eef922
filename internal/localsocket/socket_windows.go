//go:build windows

package localsocket

import "github.com/ipckit-go/ipckit/internal/ipcerr"

// Listener and Stream are placeholders for a Windows named-pipe backend
// (\\.\pipe\<name>): Listen, Connect, Accept, Read and Write all return a
// PlatformError, and no pipe is ever opened. No pack example wires a Windows named-pipe
// dependency (e.g. go-winio), so this is left as an honest, documented gap
// rather than a fabricated binding — see DESIGN.md.
type Listener struct{ name string }
type Stream struct{}

func Listen(name string) (*Listener, error) {
	return nil, errUnimplementedWindowsSocket
}

func (l *Listener) Accept() (*Stream, error) { return nil, errUnimplementedWindowsSocket }
func (l *Listener) Close() error             { return nil }

func Connect(name string) (*Stream, error) {
	return nil, errUnimplementedWindowsSocket
}

func (s *Stream) Read(p []byte) (int, error)  { return 0, errUnimplementedWindowsSocket }
func (s *Stream) Write(p []byte) (int, error) { return 0, errUnimplementedWindowsSocket }
func (s *Stream) Close() error                { return nil }

var errUnimplementedWindowsSocket = ipcerr.New(ipcerr.KindPlatformError, "local socket is not yet implemented on windows")
