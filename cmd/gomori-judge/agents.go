package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/peterkuimelis/gomori/internal/bot"
	"github.com/peterkuimelis/gomori/internal/config"
	"github.com/peterkuimelis/gomori/internal/game"
	gnet "github.com/peterkuimelis/gomori/internal/net"
	"github.com/peterkuimelis/gomori/internal/protocol"
	"github.com/peterkuimelis/gomori/internal/web"
)

// agentSet builds agents from player configs and releases them afterwards.
type agentSet struct {
	rules   game.Rules
	logger  *zap.Logger
	closers []func() error
	web     map[string]*web.Server // websocket endpoints by listen address
}

func newAgentSet(rules game.Rules, logger *zap.Logger) *agentSet {
	return &agentSet{rules: rules, logger: logger, web: make(map[string]*web.Server)}
}

func (s *agentSet) build(ctx context.Context, p config.Player, seed int64) (game.Agent, error) {
	logger := s.logger.With(zap.String("nick", p.Nick))
	switch p.Kind {
	case config.KindBuiltin:
		b, err := bot.New(p.Strategy, seed)
		if err != nil {
			return nil, err
		}
		return protocol.Local(counting(b, p.CardCounting)), nil

	case config.KindLua:
		lb, err := bot.LoadLuaBot(p.Script, logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { lb.Close(); return nil })
		return protocol.Local(counting(lb, p.CardCounting)), nil

	case config.KindCmd:
		proc, err := gnet.StartProcess(ctx, p.Cmd[0], p.Cmd[1:], logger)
		if err != nil {
			return nil, err
		}
		a := proc.Agent(p.Nick)
		s.closers = append(s.closers, a.Close)
		return a, nil

	case config.KindTCP:
		ln, err := gnet.Listen(p.Addr, logger)
		if err != nil {
			return nil, err
		}
		defer ln.Close()
		a, err := ln.AcceptAgent(ctx, p.Nick)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, a.Close)
		return a, nil

	case config.KindWebsocket:
		srv, ok := s.web[p.Addr]
		if !ok {
			srv = web.NewServer(s.rules, s.logger)
			s.web[p.Addr] = srv
			go func() {
				if err := srv.ListenAndServe(ctx, p.Addr); err != nil {
					s.logger.Error("websocket endpoint", zap.Error(err))
				}
			}()
		}
		a, err := srv.AcceptAgent(ctx, p.Nick)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, a.Close)
		return a, nil
	}
	return nil, fmt.Errorf("unknown player kind %q", p.Kind)
}

func (s *agentSet) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func counting(b protocol.Bot, on bool) protocol.Bot {
	if on {
		return bot.WithCardCounting(b)
	}
	return b
}
