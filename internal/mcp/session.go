package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/gomori/internal/game"
	"github.com/peterkuimelis/gomori/internal/log"
	gnet "github.com/peterkuimelis/gomori/internal/net"
)

// DecisionType identifies what kind of decision the match is waiting for.
type DecisionType string

const (
	DecisionPlayFirstTurn DecisionType = "play_first_turn"
	DecisionPlayTurn      DecisionType = "play_turn"
	DecisionGameOver      DecisionType = "game_over"
)

// PendingDecision represents a decision the match is waiting for.
type PendingDecision struct {
	Type  DecisionType `json:"type"`
	State *StateView   `json:"state"`

	hand  []game.Card
	board *game.Board
}

// StateView is the match as the MCP player sees it.
type StateView struct {
	Color            string   `json:"color"`
	Turn             int      `json:"turn"`
	Rows             int      `json:"rows"`
	Cols             int      `json:"cols"`
	MaxCardsPerTurn  int      `json:"max_cards_per_turn"`
	Hand             []string `json:"hand"`
	Grid             []string `json:"grid"` // one string per row, "--" for empty cells
	OpponentCaptured []string `json:"opponent_captured"`
	Legal            []string `json:"legal,omitempty"` // "<card> <i> <j>"
}

// EventView is a log event in the tool response JSON.
type EventView struct {
	Seq     int    `json:"seq"`
	Turn    int    `json:"turn"`
	Phase   string `json:"phase"`
	Player  string `json:"player,omitempty"`
	Type    string `json:"type"`
	Card    string `json:"card,omitempty"`
	Details string `json:"details"`
}

// ResultView is the end of the match in the tool response JSON.
type ResultView struct {
	Winner   string         `json:"winner,omitempty"`
	Draw     bool           `json:"draw"`
	Forfeit  bool           `json:"forfeit"`
	Offender string         `json:"offender,omitempty"`
	Reason   string         `json:"reason"`
	Scores   map[string]int `json:"scores"`
	Summary  string         `json:"summary"`
}

// ToolResponse is the JSON envelope returned by all MCP tools.
type ToolResponse struct {
	Events   []EventView  `json:"events"`
	Color    string       `json:"color,omitempty"`
	State    *StateView   `json:"state,omitempty"`
	Pending  DecisionType `json:"pending,omitempty"`
	GameOver bool         `json:"game_over"`
	Result   *ResultView  `json:"result,omitempty"`
}

// SessionOptions configures a new match against the MCP player.
type SessionOptions struct {
	Color  *game.Color // nil picks a random side
	Rules  game.Rules
	Seed   int64
	Logger *zap.Logger
	OnDone func() // runs once the match is over, e.g. to close a remote opponent
}

// GameSession holds the state of a single MCP match.
type GameSession struct {
	match  *game.Match
	agent  *MCPAgent
	onDone func()
	color  game.Color
	cancel context.CancelFunc
	done   chan struct{}

	pendingCh      chan *PendingDecision
	currentPending *PendingDecision

	mu     sync.Mutex
	events []EventView
	result *game.Result
}

// NewGameSession starts a match between the MCP player and opponent. The
// match runs in the background; tool calls drive it through the pending
// channel.
func NewGameSession(opts SessionOptions, opponent game.Agent) (*GameSession, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	color := game.Colors[rng.Intn(2)]
	if opts.Color != nil {
		color = *opts.Color
	}

	sess := &GameSession{
		color:     color,
		pendingCh: make(chan *PendingDecision, 1),
		done:      make(chan struct{}),
		onDone:    opts.OnDone,
	}
	sess.agent = NewMCPAgent(sess)

	var logger log.EventLogger = log.NewMemoryLogger()
	if opts.Logger != nil {
		logger = log.NewZapLogger(opts.Logger)
	}
	agents := [2]game.Agent{opponent, opponent}
	agents[color] = sess.agent
	m, err := game.NewMatch(game.MatchConfig{
		Rules:  opts.Rules,
		Logger: logger,
		Seed:   rng.Int63(),
	}, agents[game.Black], agents[game.Red])
	if err != nil {
		return nil, err
	}
	sess.match = m

	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	go sess.run(ctx)
	return sess, nil
}

func (s *GameSession) run(ctx context.Context) {
	res, err := s.match.Run(ctx)
	if err != nil {
		res = game.Result{MatchID: s.match.ID, Aborted: true, Err: err}
	}
	if s.onDone != nil {
		s.onDone()
	}
	s.mu.Lock()
	s.result = &res
	s.mu.Unlock()
	close(s.done)
	// Drop a decision nobody will answer any more.
	select {
	case <-s.pendingCh:
	default:
	}
	s.pendingCh <- &PendingDecision{Type: DecisionGameOver}
}

func (s *GameSession) over() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result != nil
}

// Close abandons the match and waits for it to wind down.
func (s *GameSession) Close() {
	s.cancel()
	<-s.done
}

// respond hands the MCP player's answer to the waiting agent.
func (s *GameSession) respond(ctx context.Context, resp any) error {
	select {
	case s.agent.responseCh <- resp:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// appendEvent adds an event to the session's event log. Thread-safe.
func (s *GameSession) appendEvent(ev EventView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// drainEvents returns all accumulated events and clears the buffer.
func (s *GameSession) drainEvents() []EventView {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events
	s.events = nil
	if events == nil {
		events = []EventView{}
	}
	return events
}

// waitForPending blocks until the next decision arrives from the match,
// then builds a ToolResponse with accumulated events and the decision.
func (s *GameSession) waitForPending(ctx context.Context) (*ToolResponse, error) {
	var pending *PendingDecision
	select {
	case pending = <-s.pendingCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if pending.Type != DecisionGameOver {
		s.currentPending = pending
	}
	return s.snapshot(), nil
}

// snapshot describes the session without waiting for anything.
func (s *GameSession) snapshot() *ToolResponse {
	resp := &ToolResponse{
		Events: s.drainEvents(),
		Color:  s.color.String(),
	}
	if p := s.currentPending; p != nil {
		resp.Pending = p.Type
		resp.State = p.State
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		resp.GameOver = true
		resp.Pending = ""
		resp.Result = newResultView(*s.result)
	}
	return resp
}

// checkFirstCard resolves the MCP player's opening choice.
func (p *PendingDecision) checkFirstCard(choice string) (game.Card, error) {
	card, err := gnet.HandCard(choice, p.hand)
	if err != nil {
		return game.Card{}, err
	}
	if !containsCard(p.hand, card) {
		return game.Card{}, fmt.Errorf("%s is not in your hand", card)
	}
	return card, nil
}

// checkMoves rejects a response the judge would punish, so the player can
// try again instead of forfeiting.
func (p *PendingDecision) checkMoves(resp game.PlayTurnResponse, color game.Color, rules game.Rules) error {
	board := p.board.Clone()
	if len(resp) == 0 {
		for _, card := range p.hand {
			if board.CanPlace(card, color) {
				return fmt.Errorf("you must play while %s can be placed", card)
			}
		}
		return nil
	}
	for idx, mv := range resp {
		if !containsCard(p.hand, mv.Card) {
			return fmt.Errorf("move %d: %s is not in your hand", idx+1, mv.Card)
		}
	}
	if len(resp) > rules.MaxCardsPerTurn {
		return fmt.Errorf("at most %d card(s) per turn, got %d", rules.MaxCardsPerTurn, len(resp))
	}
	used := game.NewCardsSet()
	for idx, mv := range resp {
		if !containsCard(p.hand, mv.Card) || used.Contains(mv.Card) {
			return fmt.Errorf("move %d: %s is not in your hand", idx+1, mv.Card)
		}
		used = used.Insert(mv.Card)
		if _, err := board.Preview(mv.Card, color, mv.I, mv.J, rules.EdgeFlank); err != nil {
			return fmt.Errorf("move %d: %w", idx+1, err)
		}
		if err := board.Place(mv.Card, color, mv.I, mv.J); err != nil {
			return fmt.Errorf("move %d: %w", idx+1, err)
		}
	}
	return nil
}

func containsCard(hand []game.Card, card game.Card) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}

func buildStateView(color game.Color, rules game.Rules, turn int, hand []game.Card, board *game.Board, oppWon game.CardsSet) *StateView {
	sv := &StateView{
		Color:            color.String(),
		Turn:             turn,
		Rows:             board.Rows(),
		Cols:             board.Cols(),
		MaxCardsPerTurn:  rules.MaxCardsPerTurn,
		Hand:             cardCodes(hand),
		OpponentCaptured: cardCodes(oppWon.Cards()),
	}
	for i := 0; i < board.Rows(); i++ {
		row := ""
		for j := 0; j < board.Cols(); j++ {
			if j > 0 {
				row += " "
			}
			cell, _ := board.CellAt(i, j)
			if !cell.Occupied {
				row += "--"
				continue
			}
			row += cell.Card.String() + "/" + cell.Owner.String()[:1]
		}
		sv.Grid = append(sv.Grid, row)
	}
	if turn > 0 {
		for _, card := range hand {
			for c := range board.LegalCellsFor(card, color) {
				sv.Legal = append(sv.Legal, fmt.Sprintf("%s %d %d", card, c.I, c.J))
			}
		}
	}
	return sv
}

func cardCodes(cards []game.Card) []string {
	codes := make([]string, 0, len(cards))
	for _, c := range cards {
		codes = append(codes, c.String())
	}
	return codes
}

func newEventView(e log.GameEvent) EventView {
	ev := EventView{
		Seq:     e.Seq,
		Turn:    e.Turn,
		Phase:   e.Phase,
		Type:    e.Type.String(),
		Card:    e.Card,
		Details: e.Details,
	}
	if c := game.Color(e.Player); e.Player >= 0 && c.Valid() {
		ev.Player = c.String()
	}
	return ev
}

func newResultView(r game.Result) *ResultView {
	rv := &ResultView{
		Draw:    r.Draw,
		Forfeit: r.Forfeit,
		Reason:  string(r.Reason),
		Scores: map[string]int{
			game.Black.String(): r.Scores[game.Black],
			game.Red.String():   r.Scores[game.Red],
		},
		Summary: r.String(),
	}
	if !r.Draw && !r.Aborted {
		rv.Winner = r.Winner.String()
	}
	if r.Forfeit {
		rv.Offender = r.Offender.String()
	}
	return rv
}

// respondJSON marshals a ToolResponse to a JSON string.
func respondJSON(resp *ToolResponse) string {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal error: %v"}`, err)
	}
	return string(data)
}
