// Package platform wraps the OS-level primitives the rest of ipckit builds
// on: anonymous pipes and named shared-memory regions. One file per
// platform realization; a shared surface (PipePair, SharedRegion) on top.
package platform

import (
	"os"

	"github.com/ipckit-go/ipckit/internal/ipcerr"
)

// PipePair is a unidirectional byte pipe split into a reader and a writer
// end. Byte ordering is FIFO per end; a read from a pipe whose writer is
// fully closed returns 0 bytes (EOF), matching the os.Pipe contract.
type PipePair struct {
	reader *os.File
	writer *os.File

	readerTaken bool
	writerTaken bool
}

// NewAnonymousPipe creates a unidirectional pipe using the OS syscall
// (pipe(2) on POSIX, CreatePipe on Windows — both already wrapped
// correctly by os.Pipe, so no platform-specific file is needed here).
func NewAnonymousPipe() (*PipePair, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, ipcerr.IO(err)
	}
	return &PipePair{reader: r, writer: w}, nil
}

// Reader returns the read end without detaching it from the pair.
func (p *PipePair) Reader() *os.File { return p.reader }

// Writer returns the write end without detaching it from the pair.
func (p *PipePair) Writer() *os.File { return p.writer }

// TakeReader detaches the read end for inheritance into a child process.
// A second call fails: the entity was already taken.
func (p *PipePair) TakeReader() (*os.File, error) {
	if p.readerTaken {
		return nil, ipcerr.InvalidState("pipe reader already taken")
	}
	p.readerTaken = true
	return p.reader, nil
}

// TakeWriter detaches the write end for inheritance into a child process.
func (p *PipePair) TakeWriter() (*os.File, error) {
	if p.writerTaken {
		return nil, ipcerr.InvalidState("pipe writer already taken")
	}
	p.writerTaken = true
	return p.writer, nil
}

// Close releases whichever ends have not been taken for inheritance.
func (p *PipePair) Close() error {
	var firstErr error
	if !p.readerTaken {
		if err := p.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if !p.writerTaken {
		if err := p.writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
