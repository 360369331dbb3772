package protocol

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/peterkuimelis/gomori/internal/game"
)

// MaxMessageSize bounds a single protocol line.
const MaxMessageSize = 1 << 20

// Conn carries whole protocol messages in both directions. Implementations
// exist for byte streams (TCP, process pipes) and websockets.
type Conn interface {
	Send(ctx context.Context, msg []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// StreamConn frames messages as newline-terminated lines over a byte stream.
// When the stream supports deadlines (net.Conn, *os.File pipes) a context
// deadline or cancellation interrupts a blocked read or write.
type StreamConn struct {
	rw  io.ReadWriteCloser
	r   *bufio.Reader
	wmu sync.Mutex
	rmu sync.Mutex
}

func NewStreamConn(rw io.ReadWriteCloser) *StreamConn {
	return &StreamConn{rw: rw, r: bufio.NewReader(rw)}
}

func (c *StreamConn) Send(ctx context.Context, msg []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if d, ok := c.rw.(writeDeadliner); ok {
		dl, _ := ctx.Deadline()
		_ = d.SetWriteDeadline(dl)
		stop := context.AfterFunc(ctx, func() { _ = d.SetWriteDeadline(time.Now()) })
		defer stop()
	}
	buf := make([]byte, 0, len(msg)+1)
	buf = append(buf, msg...)
	buf = append(buf, '\n')
	if _, err := c.rw.Write(buf); err != nil {
		return streamErr(ctx, err)
	}
	return nil
}

// Receive returns the next non-blank line without its terminator.
func (c *StreamConn) Receive(ctx context.Context) ([]byte, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	if d, ok := c.rw.(readDeadliner); ok {
		dl, _ := ctx.Deadline()
		_ = d.SetReadDeadline(dl)
		stop := context.AfterFunc(ctx, func() { _ = d.SetReadDeadline(time.Now()) })
		defer stop()
	}
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, streamErr(ctx, err)
		}
		if line = bytes.TrimSpace(line); len(line) > 0 {
			return line, nil
		}
	}
}

func (c *StreamConn) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := c.r.ReadLine()
		if err != nil {
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > MaxMessageSize {
			return nil, fmt.Errorf("%w: message exceeds %d bytes", game.ErrProtocol, MaxMessageSize)
		}
		if !isPrefix {
			return line, nil
		}
	}
}

func (c *StreamConn) Close() error {
	return c.rw.Close()
}

// streamErr reports deadline hits as the context's error so callers can
// tell a slow peer from a broken one.
func streamErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}
