package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/peterkuimelis/gomori/internal/log"
)

// Agent is the interface every player implements: built-in bots, remote bots
// behind the wire protocol, and LLM clients over MCP.
type Agent interface {
	// NewGame tells the agent which side it plays and under which rules.
	NewGame(ctx context.Context, color Color, rules Rules) error

	// PlayFirstTurn asks the opening player for the card to put on the
	// opening cell.
	PlayFirstTurn(ctx context.Context, hand []Card) (Card, error)

	// PlayTurn asks the active player for its moves. An empty response passes.
	PlayTurn(ctx context.Context, view TurnView) (PlayTurnResponse, error)
}

// Finisher is implemented by agents that want to be told the match is over.
type Finisher interface {
	Finish(ctx context.Context, res Result) error
}

// Notifier is implemented by agents that follow the event stream.
type Notifier interface {
	Notify(ctx context.Context, event log.GameEvent) error
}

// TurnView is everything an agent sees on its turn. All fields are copies.
type TurnView struct {
	Turn             int
	Hand             []Card
	Board            *Board
	OpponentCaptured CardsSet
}

// MatchConfig holds configuration for creating a new match.
type MatchConfig struct {
	ID          string // match id (a fresh uuid when empty)
	Rules       Rules  // zero value means DefaultRules
	Logger      log.EventLogger
	Seed        int64     // RNG seed (0 for random)
	NoShuffle   bool      // keep decks in the given order (for deterministic tests)
	Decks       [2][]Card // fixed decks by color; nil uses the color's 26 cards
	FirstPlayer *Color    // opening side; chosen by the RNG when nil
}

// Result is the final outcome of a match.
type Result struct {
	MatchID  string
	Winner   Color // meaningful unless Draw or Aborted
	Draw     bool
	Aborted  bool // run context cancelled; nobody wins
	Forfeit  bool // Offender lost by breaking a rule or failing to answer
	Offender Color
	Scores   [2]int
	Reason   Reason
	Err      error // the violation behind a forfeit or abort
	Turns    int
}

func (r Result) String() string {
	switch {
	case r.Aborted:
		return fmt.Sprintf("aborted: %v", r.Err)
	case r.Forfeit:
		return fmt.Sprintf("%s wins, %s forfeits (%s): %v", r.Winner, r.Offender, r.Reason, r.Err)
	case r.Draw:
		return fmt.Sprintf("draw %d-%d (%s)", r.Scores[Black], r.Scores[Red], r.Reason)
	default:
		return fmt.Sprintf("%s wins %d-%d (%s)", r.Winner, r.Scores[r.Winner], r.Scores[r.Winner.Other()], r.Reason)
	}
}

// abortRequest is delivered through Match.Abort.
type abortRequest struct {
	offender Color
	reason   string
}

func (a *abortRequest) Error() string {
	return fmt.Sprintf("%v: %s", ErrAborted, a.reason)
}

func (a *abortRequest) Unwrap() error {
	return ErrAborted
}

// Match orchestrates an entire match between two agents.
type Match struct {
	ID     string
	State  *MatchState
	Agents [2]Agent // indexed by Color
	Logger log.EventLogger

	abortCh chan *abortRequest
	started atomic.Bool
}

// NewMatch deals a new match from the given config. black and red are the
// agents playing each side.
func NewMatch(cfg MatchConfig, black, red Agent) (*Match, error) {
	if black == nil || red == nil {
		return nil, errors.New("a match needs two agents")
	}
	rules := cfg.Rules
	if rules == (Rules{}) {
		rules = DefaultRules()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	first := Colors[rng.Intn(len(Colors))]
	if cfg.FirstPlayer != nil {
		if !cfg.FirstPlayer.Valid() {
			return nil, fmt.Errorf("invalid first player %d", *cfg.FirstPlayer)
		}
		first = *cfg.FirstPlayer
	}
	shuffle := rng
	if cfg.NoShuffle {
		shuffle = nil
	}
	st, err := NewMatchState(rules, cfg.Decks, first, shuffle)
	if err != nil {
		return nil, err
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewMemoryLogger()
	}
	return &Match{
		ID:      id,
		State:   st,
		Agents:  [2]Agent{black, red},
		Logger:  logger,
		abortCh: make(chan *abortRequest, 1),
	}, nil
}

// Abort ends the match at the next opportunity with offender forfeiting. It
// is safe to call from any goroutine; only the first request counts.
func (m *Match) Abort(offender Color, reason string) {
	select {
	case m.abortCh <- &abortRequest{offender: offender, reason: reason}:
	default:
	}
}

// Run plays the match to completion. Rule violations, protocol errors and
// timeouts end the match by forfeit and are reported in the Result; the
// returned error is only set for engine bugs or a second call to Run.
func (m *Match) Run(ctx context.Context) (Result, error) {
	if !m.started.CompareAndSwap(false, true) {
		return Result{}, errors.New("match already started")
	}
	st := m.State
	m.log(ctx, log.NewMatchStartEvent(m.ID, int(st.Active), st.Rules.Rows, st.Rules.Cols))

	for _, color := range Colors {
		_, err := callAgent(ctx, m, func(cctx context.Context) (struct{}, error) {
			return struct{}{}, m.Agents[color].NewGame(cctx, color, st.Rules)
		})
		if err != nil {
			return m.fail(ctx, color, err)
		}
	}

	// Opening turn
	opener := st.Active
	hand := slices.Clone(st.Current().Hand)
	card, err := callAgent(ctx, m, func(cctx context.Context) (Card, error) {
		return m.Agents[opener].PlayFirstTurn(cctx, hand)
	})
	if err != nil {
		return m.fail(ctx, opener, err)
	}
	out, err := ResolveFirstTurn(st, card)
	if err != nil {
		return m.fail(ctx, opener, err)
	}
	m.logOutcome(ctx, opener, out)
	st.Phase = PhaseInProgress

	for {
		if reason, over := m.over(); over {
			return m.finish(ctx, reason), nil
		}
		st.Active = st.Active.Other()
		if len(st.Current().Hand) == 0 {
			return m.finish(ctx, ReasonHandsEmpty), nil
		}
		st.Turn++
		active := st.Active
		m.log(ctx, log.NewTurnEvent(st.Turn, int(active)))

		view := TurnView{
			Turn:             st.Turn,
			Hand:             slices.Clone(st.Current().Hand),
			Board:            st.Board.Clone(),
			OpponentCaptured: st.Player(active.Other()).Captured,
		}
		resp, err := callAgent(ctx, m, func(cctx context.Context) (PlayTurnResponse, error) {
			return m.Agents[active].PlayTurn(cctx, view)
		})
		if err != nil {
			return m.fail(ctx, active, err)
		}
		out, err := ResolveTurn(st, resp)
		if err != nil {
			return m.fail(ctx, active, err)
		}
		// A non-full board always offers a legal cell, so passes only occur
		// under placement rules stricter than the current ones.
		if out.Passed {
			st.Passes++
			m.log(ctx, log.NewPassEvent(st.Turn, int(active)))
			if st.Passes >= 2 {
				return m.finish(ctx, ReasonBothPassed), nil
			}
			continue
		}
		st.Passes = 0
		m.logOutcome(ctx, active, out)
	}
}

// over reports whether the match has reached a natural end.
func (m *Match) over() (Reason, bool) {
	st := m.State
	if st.Board.IsFull() {
		return ReasonBoardFull, true
	}
	if len(st.Players[Black].Hand) == 0 && len(st.Players[Red].Hand) == 0 {
		return ReasonHandsEmpty, true
	}
	return "", false
}

// finish scores a completed match.
func (m *Match) finish(ctx context.Context, reason Reason) Result {
	st := m.State
	st.Phase = PhaseFinished
	res := Result{
		MatchID: m.ID,
		Scores:  st.Scores(),
		Reason:  reason,
		Turns:   st.Turn,
	}
	switch {
	case res.Scores[Black] > res.Scores[Red]:
		res.Winner = Black
	case res.Scores[Red] > res.Scores[Black]:
		res.Winner = Red
	default:
		res.Draw = true
	}
	if res.Draw {
		m.log(ctx, log.NewTieEvent(st.Turn, string(reason), res.Scores))
	} else {
		m.log(ctx, log.NewWinEvent(st.Turn, int(res.Winner), string(reason), res.Scores))
	}
	m.farewell(ctx, res)
	return res
}

// fail ends the match because of err, raised while offender was to act.
func (m *Match) fail(ctx context.Context, offender Color, err error) (Result, error) {
	st := m.State
	phase := st.Phase.String()
	st.Phase = PhaseFinished
	if errors.Is(err, ErrInternal) {
		return Result{MatchID: m.ID, Turns: st.Turn}, err
	}

	res := Result{
		MatchID: m.ID,
		Scores:  st.Scores(),
		Turns:   st.Turn,
		Err:     err,
	}
	var abort *abortRequest
	switch {
	case errors.As(err, &abort):
		offender = abort.offender
	case ctx.Err() != nil:
		res.Aborted = true
		res.Reason = ReasonAborted
		m.log(ctx, log.NewAbortEvent(st.Turn, phase, err))
		m.farewell(ctx, res)
		return res, nil
	}

	res.Forfeit = true
	res.Offender = offender
	res.Winner = offender.Other()
	res.Reason = ReasonFor(err)
	m.log(ctx, log.NewForfeitEvent(st.Turn, phase, int(offender), string(res.Reason), err))
	m.farewell(ctx, res)
	return res, nil
}

// farewell tells agents that care that the match is over. Failures are
// ignored: the result is already decided.
func (m *Match) farewell(ctx context.Context, res Result) {
	ctx = context.WithoutCancel(ctx)
	for _, agent := range m.Agents {
		f, ok := agent.(Finisher)
		if !ok {
			continue
		}
		_, _ = callAgent(ctx, m, func(cctx context.Context) (struct{}, error) {
			return struct{}{}, f.Finish(cctx, res)
		})
	}
}

func (m *Match) logOutcome(ctx context.Context, player Color, out TurnOutcome) {
	st := m.State
	phase := PhaseInProgress.String()
	if st.Turn == 0 {
		phase = PhaseAwaitingFirstTurn.String()
	}
	for _, pc := range out.Placed {
		m.log(ctx, log.NewPlaceEvent(st.Turn, phase, int(player), pc.Card.String(), pc.I, pc.J))
	}
	if len(out.Captured) > 0 {
		codes := make([]string, len(out.Captured))
		for i, c := range out.Captured {
			codes[i] = c.String()
		}
		m.log(ctx, log.NewCaptureEvent(st.Turn, int(player), codes))
	}
	if len(out.Drawn) > 0 {
		m.log(ctx, log.NewDrawEvent(st.Turn, phase, int(player), len(out.Drawn)))
	}
}

// log records an event and forwards it to agents following the stream.
func (m *Match) log(ctx context.Context, event log.GameEvent) {
	m.Logger.Log(event)
	for _, agent := range m.Agents {
		if n, ok := agent.(Notifier); ok {
			_ = n.Notify(ctx, event)
		}
	}
}

// callAgent runs fn in its own goroutine under the turn deadline, so an
// agent that ignores its context still loses on time.
func callAgent[T any](ctx context.Context, m *Match, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	select {
	case req := <-m.abortCh:
		return zero, req
	default:
	}

	timeout := m.State.Rules.TurnTimeout
	var (
		cctx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		cctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type reply struct {
		value T
		err   error
	}
	done := make(chan reply, 1)
	go func() {
		v, err := fn(cctx)
		done <- reply{v, err}
	}()

	select {
	case r := <-done:
		switch {
		case r.err == nil:
			return r.value, nil
		case ctx.Err() != nil:
			return zero, fmt.Errorf("%w: %w", ErrAborted, context.Cause(ctx))
		case errors.Is(r.err, context.DeadlineExceeded) && !errors.Is(r.err, ErrAgentTimeout):
			return zero, fmt.Errorf("%w: %w", ErrAgentTimeout, r.err)
		}
		return zero, r.err
	case <-cctx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%w: %w", ErrAborted, context.Cause(ctx))
		}
		return zero, fmt.Errorf("%w: no answer within %s", ErrAgentTimeout, timeout)
	case req := <-m.abortCh:
		return zero, req
	}
}
