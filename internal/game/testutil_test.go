package game

import (
	"context"
	"testing"

	"github.com/peterkuimelis/gomori/internal/log"
)

// ScriptedAgent is an Agent that follows a predefined script of turns.
// Used in tests to deterministically drive a match. Once the script runs
// out it plays the first legal cell of the first placeable card, or passes.
type ScriptedAgent struct {
	t     *testing.T
	name  string
	color Color
	rules Rules

	opening *Card
	turns   []PlayTurnResponse
	pos     int

	// Everything the agent was shown, for assertions.
	hands [][]Card
	views []TurnView
	done  *Result
}

func NewScriptedAgent(t *testing.T, name string) *ScriptedAgent {
	return &ScriptedAgent{t: t, name: name}
}

// OpenWith sets the card played on the opening turn.
func (sa *ScriptedAgent) OpenWith(code string) *ScriptedAgent {
	c := MustCard(code)
	sa.opening = &c
	return sa
}

// AddMove scripts a one-card turn.
func (sa *ScriptedAgent) AddMove(code string, i, j int) *ScriptedAgent {
	return sa.AddTurn(mv(code, i, j))
}

// AddTurn scripts a turn made of the given moves.
func (sa *ScriptedAgent) AddTurn(moves ...Move) *ScriptedAgent {
	sa.turns = append(sa.turns, PlayTurnResponse(moves))
	return sa
}

// AddPass scripts an empty response.
func (sa *ScriptedAgent) AddPass() *ScriptedAgent {
	sa.turns = append(sa.turns, PlayTurnResponse{})
	return sa
}

func (sa *ScriptedAgent) NewGame(ctx context.Context, color Color, rules Rules) error {
	sa.color = color
	sa.rules = rules
	return nil
}

func (sa *ScriptedAgent) PlayFirstTurn(ctx context.Context, hand []Card) (Card, error) {
	sa.hands = append(sa.hands, hand)
	if sa.opening != nil {
		return *sa.opening, nil
	}
	return hand[0], nil
}

func (sa *ScriptedAgent) PlayTurn(ctx context.Context, view TurnView) (PlayTurnResponse, error) {
	sa.hands = append(sa.hands, view.Hand)
	sa.views = append(sa.views, view)
	if sa.pos < len(sa.turns) {
		resp := sa.turns[sa.pos]
		sa.pos++
		return resp, nil
	}
	for _, card := range view.Hand {
		for c := range view.Board.LegalCellsFor(card, sa.color) {
			return PlayTurnResponse{{Card: card, I: c.I, J: c.J}}, nil
		}
	}
	return PlayTurnResponse{}, nil
}

func (sa *ScriptedAgent) Finish(ctx context.Context, res Result) error {
	sa.done = &res
	return nil
}

// BlockingAgent never answers until ctx is done (or release is closed when
// it ignores its context).
type BlockingAgent struct {
	ScriptedAgent
	ignoreCtx bool
	started   chan struct{}
	release   chan struct{}
}

func NewBlockingAgent(t *testing.T, ignoreCtx bool) *BlockingAgent {
	ba := &BlockingAgent{
		ScriptedAgent: ScriptedAgent{t: t, name: "blocking"},
		ignoreCtx:     ignoreCtx,
		started:       make(chan struct{}, 8),
		release:       make(chan struct{}),
	}
	t.Cleanup(func() { close(ba.release) })
	return ba
}

func (ba *BlockingAgent) wait(ctx context.Context) error {
	ba.started <- struct{}{}
	if ba.ignoreCtx {
		<-ba.release
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (ba *BlockingAgent) PlayFirstTurn(ctx context.Context, hand []Card) (Card, error) {
	if err := ba.wait(ctx); err != nil {
		return Card{}, err
	}
	return hand[0], nil
}

func (ba *BlockingAgent) PlayTurn(ctx context.Context, view TurnView) (PlayTurnResponse, error) {
	if err := ba.wait(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

// --- Helpers ---

func mv(code string, i, j int) Move {
	return Move{Card: MustCard(code), I: i, J: j}
}

func cards(codes ...string) []Card {
	out := make([]Card, len(codes))
	for i, code := range codes {
		out[i] = MustCard(code)
	}
	return out
}

func colorPtr(c Color) *Color {
	return &c
}

// deckTop builds a deck whose first cards are dealt in the given order: the
// draw pile is consumed from its end.
func deckTop(codes ...string) []Card {
	deck := cards(codes...)
	for i, j := 0, len(deck)-1; i < j; i, j = i+1, j-1 {
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// smallRules is a 3x3 game without refills, handy for short scripts.
func smallRules() Rules {
	return Rules{
		Rows:            3,
		Cols:            3,
		HandSize:        3,
		MaxCardsPerTurn: 1,
		EdgeFlank:       true,
	}
}

// runMatchToCompletion runs a match and returns the logger and result.
func runMatchToCompletion(t *testing.T, cfg MatchConfig, black, red Agent) (*log.MemoryLogger, Result) {
	t.Helper()
	logger := log.NewMemoryLogger()
	cfg.Logger = logger
	cfg.NoShuffle = true // deterministic tests
	if cfg.FirstPlayer == nil {
		cfg.FirstPlayer = colorPtr(Black)
	}

	m, err := NewMatch(cfg, black, red)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	res, err := m.Run(context.Background())
	if err != nil {
		t.Logf("Event log:\n%s", log.FormatAll(logger.Events()))
		t.Fatalf("Match error: %v", err)
	}

	t.Logf("Match result: %s", res)
	t.Logf("Event log:\n%s", log.FormatAll(logger.Events()))
	return logger, res
}
