package web

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/coder/websocket"

	"github.com/peterkuimelis/gomori/internal/protocol"
)

// WSConn carries protocol messages as websocket text frames, one message
// per frame. A single goroutine reads the socket for the connection's whole
// life, so a peer that hangs up is noticed even while nobody is receiving.
type WSConn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
	done      chan struct{}

	frames  chan []byte
	gone    chan struct{}
	readErr error // valid once gone is closed
}

func NewWSConn(ws *websocket.Conn) *WSConn {
	ws.SetReadLimit(protocol.MaxMessageSize)
	c := &WSConn{
		ws:     ws,
		done:   make(chan struct{}),
		frames: make(chan []byte),
		gone:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *WSConn) readLoop() {
	defer close(c.gone)
	for {
		_, data, err := c.ws.Read(context.Background())
		if err != nil {
			c.readErr = err
			return
		}
		select {
		case c.frames <- data:
		case <-c.done:
			c.readErr = io.EOF
			return
		}
	}
}

// DialWebsocket connects a bot to a judge's /ws endpoint, e.g.
// ws://localhost:8080/ws?nick=alice.
func DialWebsocket(ctx context.Context, url string) (*WSConn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWSConn(ws), nil
}

func (c *WSConn) Send(ctx context.Context, msg []byte) error {
	if err := c.ws.Write(ctx, websocket.MessageText, msg); err != nil {
		return c.wsErr(ctx, err)
	}
	return nil
}

func (c *WSConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.frames:
		return data, nil
	case <-c.gone:
		return nil, c.wsErr(ctx, c.readErr)
	case <-ctx.Done():
		return nil, fmt.Errorf("websocket read: %w", ctx.Err())
	}
}

// Done is closed once Close has been called.
func (c *WSConn) Done() <-chan struct{} {
	return c.done
}

// Gone is closed once the socket can no longer be read, usually because the
// peer hung up.
func (c *WSConn) Gone() <-chan struct{} {
	return c.gone
}

func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close(websocket.StatusNormalClosure, "match over")
	})
	return err
}

// wsErr turns a normal close into io.EOF and keeps context errors
// visible to errors.Is.
func (c *WSConn) wsErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return io.EOF
	}
	return err
}
