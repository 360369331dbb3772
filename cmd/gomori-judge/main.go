package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/peterkuimelis/gomori/internal/config"
	"github.com/peterkuimelis/gomori/internal/game"
	"github.com/peterkuimelis/gomori/internal/log"
)

func main() {
	configPath := flag.String("config", "", "path to match YAML config (default: greedy vs random)")
	seed := flag.Int64("seed", 0, "RNG seed, overrides the config (0 keeps it)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, nicks, err := run(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printResult(res, nicks)
}

func run(ctx context.Context, cfg config.File, logger *zap.Logger) (game.Result, [2]string, error) {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	logger.Info("starting match", zap.Int64("seed", cfg.Seed))
	rng := rand.New(rand.NewSource(cfg.Seed))

	// Colours are drawn at random.
	players := cfg.Players
	if rng.Intn(2) == 1 {
		players[0], players[1] = players[1], players[0]
	}

	agents := newAgentSet(cfg.Rules, logger)
	defer func() {
		if err := agents.Close(); err != nil {
			logger.Debug("closing agents", zap.Error(err))
		}
	}()
	var black, red game.Agent
	for i, p := range players {
		a, err := agents.build(ctx, p, rng.Int63())
		if err != nil {
			return game.Result{}, [2]string{}, fmt.Errorf("player %s: %w", p.Nick, err)
		}
		if game.Colors[i] == game.Black {
			black = a
		} else {
			red = a
		}
	}

	m, err := game.NewMatch(game.MatchConfig{
		Rules:  cfg.Rules,
		Logger: eventLogger(cfg.Log.Events, logger),
		Seed:   rng.Int63(),
	}, black, red)
	if err != nil {
		return game.Result{}, [2]string{}, err
	}
	res, err := m.Run(ctx)
	return res, [2]string{players[0].Nick, players[1].Nick}, err
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	return zc.Build()
}

func eventLogger(kind string, logger *zap.Logger) log.EventLogger {
	switch kind {
	case "zap":
		return log.NewZapLogger(logger.Named("match"))
	case "off":
		return log.NewMemoryLogger()
	default:
		return log.NewTextLogger(os.Stderr)
	}
}

var (
	inks = [2]*color.Color{
		game.Black: color.New(color.FgHiWhite, color.Bold),
		game.Red:   color.New(color.FgRed, color.Bold),
	}
	warnInk = color.New(color.FgYellow)
)

func printResult(res game.Result, nicks [2]string) {
	who := func(c game.Color) string {
		return inks[c].Sprintf("%s (%s)", nicks[c], c)
	}
	fmt.Println()
	switch {
	case res.Aborted:
		warnInk.Printf("Match aborted: %v\n", res.Err)
	case res.Draw:
		fmt.Printf("Draw %d-%d between %s and %s (%s)\n",
			res.Scores[game.Black], res.Scores[game.Red], who(game.Black), who(game.Red), res.Reason)
	case res.Forfeit:
		fmt.Printf("%s wins: %s forfeits (%s)\n", who(res.Winner), who(res.Offender), res.Reason)
		warnInk.Printf("  %v\n", res.Err)
	default:
		fmt.Printf("%s wins %d-%d over %s (%s)\n",
			who(res.Winner), res.Scores[res.Winner], res.Scores[res.Winner.Other()], who(res.Winner.Other()), res.Reason)
	}
	fmt.Printf("Match %s, %d turns\n", res.MatchID, res.Turns)
}
