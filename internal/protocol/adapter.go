package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/peterkuimelis/gomori/internal/game"
)

// Adapter implements game.Agent for a bot on the other side of a Conn.
type Adapter struct {
	conn   Conn
	logger *zap.Logger
	name   string
	rules  game.Rules
	mu     sync.Mutex
}

// NewAdapter creates an agent speaking the protocol over conn. name only
// shows up in logs.
func NewAdapter(conn Conn, name string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		conn:   conn,
		logger: logger.With(zap.String("agent", name)),
		name:   name,
		rules:  game.DefaultRules(),
	}
}

func (a *Adapter) Name() string {
	return a.name
}

func (a *Adapter) NewGame(ctx context.Context, color game.Color, rules game.Rules) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rules = rules

	data, err := a.roundTrip(ctx, Request{
		Type:  TypeNewGame,
		Color: color.String(),
		Rules: EncodeRules(rules),
	})
	if err != nil {
		return err
	}
	// Any JSON value acknowledges; the reply carries no information.
	if !json.Valid(data) {
		return fmt.Errorf("%w: new_game reply is not JSON: %q", game.ErrProtocol, truncate(data))
	}
	return nil
}

func (a *Adapter) PlayFirstTurn(ctx context.Context, hand []game.Card) (game.Card, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := a.roundTrip(ctx, Request{
		Type:  TypePlayFirstTurn,
		Cards: EncodeCards(hand),
	})
	if err != nil {
		return game.Card{}, err
	}
	return DecodeFirstCard(data)
}

func (a *Adapter) PlayTurn(ctx context.Context, view game.TurnView) (game.PlayTurnResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := a.roundTrip(ctx, Request{
		Type:               TypePlayTurn,
		Turn:               view.Turn,
		Cards:              EncodeCards(view.Hand),
		Fields:             EncodeBoard(view.Board),
		CardsWonByOpponent: EncodeCards(view.OpponentCaptured.Cards()),
	})
	if err != nil {
		return nil, err
	}
	return DecodeMoves(data, a.rules.Rows, a.rules.Cols)
}

// Finish sends "bye". No answer is expected.
func (a *Adapter) Finish(ctx context.Context, res game.Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	bye := Request{Type: TypeBye, Reason: string(res.Reason)}
	if !res.Draw && !res.Aborted {
		bye.Winner = res.Winner.String()
	}
	return a.send(ctx, bye)
}

func (a *Adapter) Close() error {
	return a.conn.Close()
}

func (a *Adapter) roundTrip(ctx context.Context, req Request) ([]byte, error) {
	if err := a.send(ctx, req); err != nil {
		return nil, err
	}
	data, err := a.conn.Receive(ctx)
	if err != nil {
		return nil, a.transportErr(ctx, err)
	}
	a.logger.Debug("received", zap.String("type", req.Type), zap.ByteString("msg", truncate(data)))
	return data, nil
}

func (a *Adapter) send(ctx context.Context, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", game.ErrInternal, req.Type, err)
	}
	a.logger.Debug("sending", zap.String("type", req.Type))
	if err := a.conn.Send(ctx, data); err != nil {
		return a.transportErr(ctx, err)
	}
	return nil
}

// transportErr classifies a transport failure.
func (a *Adapter) transportErr(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, game.ErrProtocol):
		return err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", game.ErrAgentTimeout, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		a.logger.Warn("connection closed by bot")
		return fmt.Errorf("%w: connection closed", game.ErrAgentFailed)
	}
	a.logger.Warn("transport failure", zap.Error(err))
	return fmt.Errorf("%w: %v", game.ErrAgentFailed, err)
}

func truncate(data []byte) []byte {
	const limit = 200
	if len(data) > limit {
		return data[:limit]
	}
	return data
}
