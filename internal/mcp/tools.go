package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/peterkuimelis/gomori/internal/bot"
	"github.com/peterkuimelis/gomori/internal/game"
	gnet "github.com/peterkuimelis/gomori/internal/net"
	"github.com/peterkuimelis/gomori/internal/protocol"
)

// tcpPrefix marks an opponent that connects over TCP, e.g. "tcp::7000".
const tcpPrefix = "tcp:"

// Tools owns the MCP player's match. One match runs at a time.
type Tools struct {
	mu      sync.Mutex
	session *GameSession
	rules   game.Rules
	logger  *zap.Logger
}

// NewTools creates the tool set. rules are the defaults start_match
// refines; a zero TurnTimeout leaves the MCP player unhurried.
func NewTools(rules game.Rules, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{rules: rules, logger: logger}
}

// Register adds all game tools to the MCP server.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(startMatchTool(), t.handleStartMatch)
	s.AddTool(getStateTool(), t.handleGetState)
	s.AddTool(playFirstTurnTool(), t.handlePlayFirstTurn)
	s.AddTool(playTurnTool(), t.handlePlayTurn)
}

// Close abandons a running match.
func (t *Tools) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session != nil {
		t.session.Close()
	}
}

// --- Tool definitions ---

func startMatchTool() mcp.Tool {
	return mcp.NewTool("start_match",
		mcp.WithDescription("Start a Gomori match. Two players take turns placing cards on a grid; "+
			"a card placed so that it closes a line of opponent cards against one of yours (or the board edge) "+
			"wins those cards. Most cards won at the end wins. Returns the state and the first decision for you."),
		mcp.WithString("color", mcp.Description("Side to play: black, red or random (default random)")),
		mcp.WithString("opponent", mcp.Description(fmt.Sprintf(
			"Built-in strategy (%s) or %s<addr> to wait for a bot over TCP. Default greedy.",
			strings.Join(bot.Names(), ", "), tcpPrefix))),
		mcp.WithNumber("seed", mcp.Description("Random seed for a reproducible deal")),
		mcp.WithNumber("rows", mcp.Description("Board rows")),
		mcp.WithNumber("cols", mcp.Description("Board columns")),
		mcp.WithNumber("max_cards_per_turn", mcp.Description("Cards that may be placed in one turn")),
	)
}

func getStateTool() mcp.Tool {
	return mcp.NewTool("get_state",
		mcp.WithDescription("Get the current state, accumulated events and pending decision without playing. Read-only."),
	)
}

func playFirstTurnTool() mcp.Tool {
	return mcp.NewTool("play_first_turn",
		mcp.WithDescription("Open the match with a card from your hand. Use this when the pending decision is 'play_first_turn'."),
		mcp.WithString("card", mcp.Required(), mcp.Description("1-based hand index or card code such as T♥")),
	)
}

func playTurnTool() mcp.Tool {
	return mcp.NewTool("play_turn",
		mcp.WithDescription("Place cards. Use this when the pending decision is 'play_turn'. "+
			"The state's 'legal' list shows every allowed single placement. You may only pass when it is empty."),
		mcp.WithString("moves", mcp.Required(), mcp.Description(
			"Comma separated \"<card> <i> <j>\" placements (card is a hand index or code), or \"pass\"")),
	)
}

// --- Tool handlers ---

func (t *Tools) handleStartMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil && !t.session.over() {
		return mcp.NewToolResultError("A match is already running. Only one match at a time is supported."), nil
	}

	opts := SessionOptions{
		Rules:  t.rules,
		Seed:   int64(request.GetInt("seed", 0)),
		Logger: t.logger,
	}
	switch c := request.GetString("color", "random"); c {
	case "random", "":
	default:
		color, err := game.ParseColor(c)
		if err != nil {
			return mcp.NewToolResultError("color must be black, red or random"), nil
		}
		opts.Color = &color
	}
	opts.Rules.Rows = request.GetInt("rows", opts.Rules.Rows)
	opts.Rules.Cols = request.GetInt("cols", opts.Rules.Cols)
	opts.Rules.MaxCardsPerTurn = request.GetInt("max_cards_per_turn", opts.Rules.MaxCardsPerTurn)
	if err := opts.Rules.Validate(); err != nil {
		return mcp.NewToolResultErrorf("Invalid rules: %v", err), nil
	}

	opponent, closeOpponent, err := t.opponent(ctx, request.GetString("opponent", bot.StrategyGreedy), opts.Seed)
	if err != nil {
		return mcp.NewToolResultErrorf("Failed to set up opponent: %v", err), nil
	}
	opts.OnDone = closeOpponent

	sess, err := NewGameSession(opts, opponent)
	if err != nil {
		closeOpponent()
		return mcp.NewToolResultErrorf("Failed to start match: %v", err), nil
	}
	t.session = sess

	resp, err := sess.waitForPending(ctx)
	if err != nil {
		return mcp.NewToolResultErrorf("Error waiting for first decision: %v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

// opponent builds the other side of the match.
func (t *Tools) opponent(ctx context.Context, which string, seed int64) (game.Agent, func(), error) {
	if addr, ok := strings.CutPrefix(which, tcpPrefix); ok {
		ln, err := gnet.Listen(addr, t.logger)
		if err != nil {
			return nil, nil, err
		}
		defer ln.Close()
		actx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		a, err := ln.AcceptAgent(actx, "opponent")
		if err != nil {
			return nil, nil, err
		}
		return a, func() { _ = a.Close() }, nil
	}
	b, err := bot.New(which, seed)
	if err != nil {
		return nil, nil, err
	}
	return protocol.Local(b), func() {}, nil
}

func (t *Tools) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return mcp.NewToolResultError("No match is running. Use start_match first."), nil
	}
	return mcp.NewToolResultText(respondJSON(t.session.snapshot())), nil
}

func (t *Tools) handlePlayFirstTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, pending, errResult := t.pending(DecisionPlayFirstTurn)
	if errResult != nil {
		return errResult, nil
	}
	card, err := pending.checkFirstCard(request.GetString("card", ""))
	if err != nil {
		return mcp.NewToolResultErrorf("Invalid card: %v", err), nil
	}
	return t.answer(ctx, sess, FirstTurnResponse{Card: card})
}

func (t *Tools) handlePlayTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, pending, errResult := t.pending(DecisionPlayTurn)
	if errResult != nil {
		return errResult, nil
	}
	moves, err := gnet.ParseMoves(strings.TrimSpace(request.GetString("moves", "")), pending.hand)
	if err != nil {
		return mcp.NewToolResultErrorf("Could not read moves: %v", err), nil
	}
	if err := pending.checkMoves(moves, sess.agent.color, sess.agent.rules); err != nil {
		return mcp.NewToolResultErrorf("Illegal move, try again: %v", err), nil
	}
	return t.answer(ctx, sess, TurnResponse{Moves: moves})
}

// pending returns the decision the MCP player owes, or a tool error when
// there is none of the wanted type.
func (t *Tools) pending(want DecisionType) (*GameSession, *PendingDecision, *mcp.CallToolResult) {
	sess := t.session
	if sess == nil {
		return nil, nil, mcp.NewToolResultError("No match is running. Use start_match first.")
	}
	if sess.over() {
		return nil, nil, mcp.NewToolResultError("The match is over. Use start_match to play again.")
	}
	p := sess.currentPending
	if p == nil {
		return nil, nil, mcp.NewToolResultError("No pending decision.")
	}
	if p.Type != want {
		return nil, nil, mcp.NewToolResultErrorf("Wrong tool: pending decision is '%s', not '%s'. Use the correct tool.", p.Type, want)
	}
	return sess, p, nil
}

func (t *Tools) answer(ctx context.Context, sess *GameSession, resp any) (*mcp.CallToolResult, error) {
	if err := sess.respond(ctx, resp); err != nil {
		return mcp.NewToolResultErrorf("Error sending decision: %v", err), nil
	}
	sess.currentPending = nil
	next, err := sess.waitForPending(ctx)
	if err != nil {
		return mcp.NewToolResultErrorf("Error waiting for next decision: %v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(next)), nil
}
