//go:build unix

// Package localsocket provides a platform-independent listener/stream pair
// backed by a Unix domain stream socket on POSIX and (eventually) a named
// pipe on Windows. Streams implement io.ReadWriteCloser so the framed
// channel in internal/framed composes directly on top of either backend.
package localsocket

import (
	"net"
	"os"
	"path/filepath"

	"github.com/ipckit-go/ipckit/internal/ipcerr"
)

const socketDir = "/tmp"

func socketPath(name string) string {
	return filepath.Join(socketDir, name+".sock")
}

// Listener accepts connections on a named local socket.
type Listener struct {
	name string
	ln   net.Listener
}

// Listen binds a new listener at /tmp/<name>.sock. Fails with AlreadyExists
// if the socket file already exists and is live.
func Listen(name string) (*Listener, error) {
	path := socketPath(name)
	if _, err := os.Stat(path); err == nil {
		if _, dialErr := net.Dial("unix", path); dialErr == nil {
			return nil, ipcerr.AlreadyExists(name)
		}
		// Stale socket file from a prior, uncleanly-terminated process.
		os.Remove(path)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, ipcerr.Platform(err)
	}
	return &Listener{name: name, ln: ln}, nil
}

// Accept blocks until a client connects and returns the resulting stream.
func (l *Listener) Accept() (*Stream, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, ipcerr.Platform(err)
	}
	return &Stream{conn: conn}, nil
}

// Close stops listening and removes the socket file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	os.Remove(socketPath(l.name))
	if err != nil {
		return ipcerr.Platform(err)
	}
	return nil
}

// Stream is a full-duplex connection over a local socket.
type Stream struct {
	conn net.Conn
}

// Connect dials an existing listener by name. Fails with NotFound until the
// server is listening.
func Connect(name string) (*Stream, error) {
	conn, err := net.Dial("unix", socketPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ipcerr.NotFound(name)
		}
		return nil, ipcerr.NotFound(name)
	}
	return &Stream{conn: conn}, nil
}

func (s *Stream) Read(p []byte) (int, error)  { return s.conn.Read(p) }
func (s *Stream) Write(p []byte) (int, error) { return s.conn.Write(p) }
func (s *Stream) Close() error                { return s.conn.Close() }
