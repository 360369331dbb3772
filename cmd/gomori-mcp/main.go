package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/peterkuimelis/gomori/internal/game"
	gomorimcp "github.com/peterkuimelis/gomori/internal/mcp"
)

func main() {
	timeout := flag.Duration("turn-timeout", 0, "deadline for each MCP decision (0 for none)")
	logFile := flag.String("log", "", "write logs to this file (stdout carries MCP)")
	flag.Parse()

	logger := zap.NewNop()
	if *logFile != "" {
		zc := zap.NewDevelopmentConfig()
		zc.OutputPaths = []string{*logFile}
		zc.ErrorOutputPaths = []string{*logFile}
		var err error
		if logger, err = zc.Build(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	rules := game.DefaultRules()
	rules.TurnTimeout = *timeout

	tools := gomorimcp.NewTools(rules, logger)
	defer tools.Close()

	s := server.NewMCPServer("gomori", "1.0.0")
	tools.Register(s)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
