package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/gomori/internal/protocol"
)

// Listener accepts bots connecting to the judge over TCP.
type Listener struct {
	ln     *net.TCPListener
	logger *zap.Logger
}

// Listen opens a TCP listener on addr (e.g. ":7000").
func Listen(addr string, logger *zap.Logger) (*Listener, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	logger.Info("waiting for bots", zap.Stringer("addr", ln.Addr()))
	return &Listener{ln: ln, logger: logger}, nil
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// AcceptAgent waits for the next bot and returns it as a game agent.
func (l *Listener) AcceptAgent(ctx context.Context, name string) (*protocol.Adapter, error) {
	stop := context.AfterFunc(ctx, func() { _ = l.ln.SetDeadline(time.Now()) })
	defer stop()
	defer l.ln.SetDeadline(time.Time{})

	conn, err := l.ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("accept: %w", ctxErr)
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	l.logger.Info("bot connected", zap.String("agent", name), zap.Stringer("remote", conn.RemoteAddr()))
	return protocol.NewAdapter(protocol.NewStreamConn(conn), name, l.logger), nil
}

func (l *Listener) Close() error {
	err := l.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
