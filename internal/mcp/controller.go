package mcp

import (
	"context"
	"fmt"

	"github.com/peterkuimelis/gomori/internal/game"
	"github.com/peterkuimelis/gomori/internal/log"
)

// MCPAgent implements game.Agent by sending decisions to the MCP session's
// pending channel and blocking on a response channel.
type MCPAgent struct {
	session    *GameSession
	color      game.Color
	rules      game.Rules
	responseCh chan any
}

// NewMCPAgent creates the agent the MCP client plays through.
func NewMCPAgent(session *GameSession) *MCPAgent {
	return &MCPAgent{
		session:    session,
		responseCh: make(chan any),
	}
}

// FirstTurnResponse answers a play_first_turn decision.
type FirstTurnResponse struct {
	Card game.Card
}

// TurnResponse answers a play_turn decision.
type TurnResponse struct {
	Moves game.PlayTurnResponse
}

func (a *MCPAgent) NewGame(ctx context.Context, color game.Color, rules game.Rules) error {
	a.color = color
	a.rules = rules
	return nil
}

func (a *MCPAgent) PlayFirstTurn(ctx context.Context, hand []game.Card) (game.Card, error) {
	pending := &PendingDecision{
		Type:  DecisionPlayFirstTurn,
		State: buildStateView(a.color, a.rules, 0, hand, game.NewBoard(a.rules.Rows, a.rules.Cols), game.CardsSet{}),
		hand:  hand,
	}
	resp, err := a.decide(ctx, pending)
	if err != nil {
		return game.Card{}, err
	}
	fr, ok := resp.(FirstTurnResponse)
	if !ok {
		return game.Card{}, fmt.Errorf("%w: unexpected %T for play_first_turn", game.ErrInternal, resp)
	}
	return fr.Card, nil
}

func (a *MCPAgent) PlayTurn(ctx context.Context, view game.TurnView) (game.PlayTurnResponse, error) {
	pending := &PendingDecision{
		Type:  DecisionPlayTurn,
		State: buildStateView(a.color, a.rules, view.Turn, view.Hand, view.Board, view.OpponentCaptured),
		hand:  view.Hand,
		board: view.Board,
	}
	resp, err := a.decide(ctx, pending)
	if err != nil {
		return nil, err
	}
	tr, ok := resp.(TurnResponse)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected %T for play_turn", game.ErrInternal, resp)
	}
	return tr.Moves, nil
}

// Notify implements game.Notifier.
func (a *MCPAgent) Notify(ctx context.Context, event log.GameEvent) error {
	a.session.appendEvent(newEventView(event))
	return nil
}

func (a *MCPAgent) decide(ctx context.Context, pending *PendingDecision) (any, error) {
	select {
	case a.session.pendingCh <- pending:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-a.responseCh:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
