package net

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/gomori/internal/protocol"
)

// Process is a bot running as a child process. Requests go to its stdin,
// answers come from its stdout and stderr lines are logged.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	logger *zap.Logger

	closeOnce  sync.Once
	closeErr   error
	stderrDone chan struct{}
}

// StartProcess spawns the bot command. The process is killed when ctx is
// done or when the returned Process is closed.
func StartProcess(ctx context.Context, name string, args []string, logger *zap.Logger) (*Process, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = time.Second
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	p := &Process{
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		logger:     logger.With(zap.String("cmd", name), zap.Int("pid", cmd.Process.Pid)),
		stderrDone: make(chan struct{}),
	}
	go p.forwardStderr(stderr)
	p.logger.Info("bot process started")
	return p, nil
}

func (p *Process) forwardStderr(r io.Reader) {
	defer close(p.stderrDone)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.logger.Info("bot stderr", zap.String("line", sc.Text()))
	}
}

// Conn returns the protocol connection over the process's stdio.
func (p *Process) Conn() *protocol.StreamConn {
	return protocol.NewStreamConn(p)
}

// Agent returns the process as a game agent.
func (p *Process) Agent(name string) *protocol.Adapter {
	return protocol.NewAdapter(p.Conn(), name, p.logger)
}

func (p *Process) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

func (p *Process) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// SetReadDeadline lets a StreamConn bound a read by the turn deadline.
func (p *Process) SetReadDeadline(t time.Time) error {
	if f, ok := p.stdout.(*os.File); ok {
		return f.SetReadDeadline(t)
	}
	return nil
}

func (p *Process) SetWriteDeadline(t time.Time) error {
	if f, ok := p.stdin.(*os.File); ok {
		return f.SetWriteDeadline(t)
	}
	return nil
}

// Close closes stdin, gives the bot a moment to exit on its own and kills
// it otherwise.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		_ = p.stdin.Close()
		done := make(chan error, 1)
		go func() {
			<-p.stderrDone
			done <- p.cmd.Wait()
		}()
		select {
		case err := <-done:
			p.closeErr = err
		case <-time.After(2 * time.Second):
			_ = p.cmd.Process.Kill()
			p.closeErr = <-done
		}
		var exitErr *exec.ExitError
		if errors.As(p.closeErr, &exitErr) {
			p.logger.Warn("bot process exited", zap.Int("code", exitErr.ExitCode()))
		} else {
			p.logger.Info("bot process exited")
		}
	})
	return p.closeErr
}
