// Package framed implements a length-prefixed message channel over any
// bidirectional byte stream, plus the graceful-shutdown protocol that lets
// in-flight operations finish while refusing new ones.
package framed

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/ipckit-go/ipckit/internal/ipcerr"
)

// MaxFrameSize is the largest payload a frame may carry: 64 MiB, per the
// wire format in spec §6.
const MaxFrameSize = 64 * 1024 * 1024

const prefixLen = 4

// Channel is a length-prefixed message transport over an underlying
// io.ReadWriteCloser. Frames are [4-byte big-endian length][payload]; the
// length excludes the prefix itself.
type Channel struct {
	stream io.ReadWriteCloser
}

// New wraps stream in a framed Channel.
func New(stream io.ReadWriteCloser) *Channel {
	return &Channel{stream: stream}
}

// Send writes one frame containing payload. The write is not interleaved
// with any other Send on this Channel's goroutine; callers sharing a
// Channel across goroutines must serialize their own sends.
func (c *Channel) Send(payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ipcerr.FrameTooLarge(uint32(len(payload)), MaxFrameSize)
	}

	header := make([]byte, prefixLen)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))

	if _, err := writeAll(c.stream, header); err != nil {
		return err
	}
	if _, err := writeAll(c.stream, payload); err != nil {
		return err
	}
	return nil
}

// Recv reads the next complete frame and returns its payload.
func (c *Channel) Recv() ([]byte, error) {
	header := make([]byte, prefixLen)
	if err := readExact(c.stream, header); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header)
	if length > MaxFrameSize {
		return nil, ipcerr.FrameTooLarge(length, MaxFrameSize)
	}

	payload := make([]byte, length)
	if err := readExact(c.stream, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// SendJSON marshals v and sends it as a single frame.
func (c *Channel) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ipcerr.InvalidData(err)
	}
	return c.Send(data)
}

// RecvJSON reads a frame and unmarshals it into v.
func (c *Channel) RecvJSON(v any) error {
	data, err := c.Recv()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ipcerr.InvalidData(err)
	}
	return nil
}

// Close closes the underlying stream.
func (c *Channel) Close() error {
	return c.stream.Close()
}

func writeAll(w io.Writer, data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := w.Write(data[written:])
		written += n
		if err != nil {
			return written, mapIOError(err)
		}
	}
	return written, nil
}

func readExact(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return ipcerr.Wrap(ipcerr.KindUnexpectedEOF, "stream closed mid-frame", err)
		}
		return mapIOError(err)
	}
	return nil
}

func mapIOError(err error) error {
	if err == io.EOF || err == io.ErrClosedPipe {
		return ipcerr.ConnectionClosed()
	}
	return ipcerr.IO(err)
}
