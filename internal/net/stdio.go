package net

import (
	"io"
	"os"

	"github.com/peterkuimelis/gomori/internal/protocol"
)

type stdio struct {
	io.Reader
	io.Writer
}

// Close leaves the process's standard streams open.
func (stdio) Close() error { return nil }

// Stdio returns the protocol connection a bot process uses to talk to the
// judge that spawned it.
func Stdio() *protocol.StreamConn {
	return protocol.NewStreamConn(stdio{Reader: os.Stdin, Writer: os.Stdout})
}
