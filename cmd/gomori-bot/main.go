package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/gomori/internal/bot"
	gnet "github.com/peterkuimelis/gomori/internal/net"
	"github.com/peterkuimelis/gomori/internal/protocol"
	"github.com/peterkuimelis/gomori/internal/web"
)

func main() {
	strategy := flag.String("strategy", bot.StrategyGreedy, fmt.Sprintf("built-in strategy %v", bot.Names()))
	script := flag.String("lua", "", "play the Lua strategy in this file instead")
	human := flag.Bool("human", false, "play yourself through the terminal (needs -connect or -ws)")
	counting := flag.Bool("counting", false, "keep track of seen cards for the strategy")
	seed := flag.Int64("seed", 0, "RNG seed for random strategies (0 for random)")
	addr := flag.String("connect", "", "judge TCP address; the default is stdio")
	wsURL := flag.String("ws", "", "judge websocket URL, e.g. ws://localhost:8080/ws?nick=me")
	flag.Parse()

	// stdout may carry the protocol: logs go to stderr.
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, options{
		strategy: *strategy,
		script:   *script,
		human:    *human,
		counting: *counting,
		seed:     *seed,
		addr:     *addr,
		wsURL:    *wsURL,
	}); err != nil {
		logger.Error("bot stopped", zap.Error(err))
		os.Exit(1)
	}
}

type options struct {
	strategy, script string
	human, counting  bool
	seed             int64
	addr, wsURL      string
}

func run(ctx context.Context, logger *zap.Logger, o options) error {
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}

	var b protocol.Bot
	switch {
	case o.human:
		if o.addr == "" && o.wsURL == "" {
			return fmt.Errorf("-human needs -connect or -ws: stdio carries the protocol")
		}
		b = gnet.NewTerminalBot(os.Stdin, os.Stdout)
	case o.script != "":
		lb, err := bot.LoadLuaBot(o.script, logger)
		if err != nil {
			return err
		}
		defer lb.Close()
		b = lb
	default:
		var err error
		if b, err = bot.New(o.strategy, o.seed); err != nil {
			return err
		}
	}
	if o.counting {
		b = bot.WithCardCounting(b)
	}

	var conn protocol.Conn
	switch {
	case o.wsURL != "":
		c, err := web.DialWebsocket(ctx, o.wsURL)
		if err != nil {
			return err
		}
		conn = c
	case o.addr != "":
		c, err := gnet.Dial(ctx, o.addr)
		if err != nil {
			return err
		}
		conn = c
	default:
		conn = gnet.Stdio()
	}
	defer conn.Close()

	logger.Info("bot ready")
	return protocol.Serve(ctx, b, conn)
}
