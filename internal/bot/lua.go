package bot

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/peterkuimelis/gomori/internal/game"
)

// DefaultLuaBudget bounds one script call when the rules set no turn timeout.
const DefaultLuaBudget = time.Second

// LuaBot runs a strategy written in Lua. The script may define any of
//
//	new_game(color, rules)
//	play_first_turn(hand)  -> hand index (1-based) or card code
//	play_turn(view)        -> list of {card=<index or code>, i=<row>, j=<col>}
//
// A missing function falls back to the first legal placement. view carries
// turn, color, rows, cols, hand, board, opponent_captured, moves (every
// legal placement with the number of cards it captures) and counter (when
// wrapped in CardCounting). Scripts can call log(msg).
type LuaBot struct {
	L       *lua.LState
	logger  *zap.Logger
	color   game.Color
	rules   game.Rules
	counter *CardCounter
}

// NewLuaBot compiles source and runs its top level.
func NewLuaBot(source string, logger *zap.Logger) (*LuaBot, error) {
	b := newLuaBot(logger)
	if err := b.L.DoString(source); err != nil {
		b.L.Close()
		return nil, fmt.Errorf("load lua strategy: %w", err)
	}
	return b, nil
}

// LoadLuaBot reads the strategy from a file.
func LoadLuaBot(path string, logger *zap.Logger) (*LuaBot, error) {
	b := newLuaBot(logger)
	if err := b.L.DoFile(path); err != nil {
		b.L.Close()
		return nil, fmt.Errorf("load lua strategy %s: %w", path, err)
	}
	return b, nil
}

func newLuaBot(logger *zap.Logger) *LuaBot {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &LuaBot{
		L:      lua.NewState(),
		logger: logger,
		rules:  game.DefaultRules(),
	}
	b.L.SetGlobal("log", b.L.NewFunction(func(L *lua.LState) int {
		b.logger.Info("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	return b
}

func (b *LuaBot) UseCounter(c *CardCounter) {
	b.counter = c
}

func (b *LuaBot) Close() {
	b.L.Close()
}

func (b *LuaBot) NewGame(color game.Color, rules game.Rules) error {
	b.color = color
	b.rules = rules
	rt := b.L.NewTable()
	rt.RawSetString("rows", lua.LNumber(rules.Rows))
	rt.RawSetString("cols", lua.LNumber(rules.Cols))
	rt.RawSetString("hand_size", lua.LNumber(rules.HandSize))
	rt.RawSetString("max_cards_per_turn", lua.LNumber(rules.MaxCardsPerTurn))
	rt.RawSetString("edge_flank", lua.LBool(rules.EdgeFlank))
	rt.RawSetString("board_bonus", lua.LBool(rules.BoardBonus))
	_, _, err := b.call("new_game", lua.LString(color.String()), rt)
	return err
}

func (b *LuaBot) PlayFirstTurn(hand []game.Card) (game.Card, error) {
	ret, ok, err := b.call("play_first_turn", b.cardList(hand))
	if err != nil {
		return game.Card{}, err
	}
	if !ok {
		return hand[0], nil
	}
	return cardFromLua(ret, hand)
}

func (b *LuaBot) PlayTurn(view game.TurnView) (game.PlayTurnResponse, error) {
	moves := placements(view.Board, view.Hand, b.color)

	vt := b.L.NewTable()
	vt.RawSetString("turn", lua.LNumber(view.Turn))
	vt.RawSetString("color", lua.LString(b.color.String()))
	vt.RawSetString("rows", lua.LNumber(view.Board.Rows()))
	vt.RawSetString("cols", lua.LNumber(view.Board.Cols()))
	vt.RawSetString("hand", b.cardList(view.Hand))
	vt.RawSetString("opponent_captured", b.cardList(view.OpponentCaptured.Cards()))

	board := b.L.NewTable()
	for pc := range view.Board.Cells() {
		ft := b.L.NewTable()
		ft.RawSetString("i", lua.LNumber(pc.I))
		ft.RawSetString("j", lua.LNumber(pc.J))
		ft.RawSetString("card", lua.LString(pc.Card.String()))
		ft.RawSetString("owner", lua.LString(pc.Owner.String()))
		board.Append(ft)
	}
	vt.RawSetString("board", board)

	mt := b.L.NewTable()
	for _, mv := range moves {
		won, err := view.Board.Preview(mv.Card, b.color, mv.I, mv.J, b.rules.EdgeFlank)
		if err != nil {
			return nil, err
		}
		t := b.L.NewTable()
		t.RawSetString("card", lua.LString(mv.Card.String()))
		t.RawSetString("i", lua.LNumber(mv.I))
		t.RawSetString("j", lua.LNumber(mv.J))
		t.RawSetString("captures", lua.LNumber(len(won)))
		mt.Append(t)
	}
	vt.RawSetString("moves", mt)

	if b.counter != nil {
		ct := b.L.NewTable()
		ct.RawSetString("draw_pile", b.cardList(b.counter.DrawPile.Cards()))
		ct.RawSetString("opponent_available", b.cardList(b.counter.OpponentAvailable.Cards()))
		ct.RawSetString("won_self", b.cardList(b.counter.WonSelf.Cards()))
		ct.RawSetString("won_opponent", b.cardList(b.counter.WonOpponent.Cards()))
		vt.RawSetString("counter", ct)
	}

	ret, ok, err := b.call("play_turn", vt)
	if err != nil {
		return nil, err
	}
	if !ok {
		if len(moves) == 0 {
			return game.PlayTurnResponse{}, nil
		}
		return game.PlayTurnResponse{moves[0]}, nil
	}
	return movesFromLua(ret, view.Hand)
}

// call invokes a global function under the turn budget. ok is false when
// the script does not define it.
func (b *LuaBot) call(name string, args ...lua.LValue) (ret lua.LValue, ok bool, err error) {
	fn := b.L.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, false, nil
	}
	budget := b.rules.TurnTimeout
	if budget <= 0 {
		budget = DefaultLuaBudget
	}
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()
	b.L.SetContext(ctx)
	defer b.L.RemoveContext()

	if err := b.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, true, fmt.Errorf("lua %s: %w", name, err)
	}
	ret = b.L.Get(-1)
	b.L.Pop(1)
	return ret, true, nil
}

func (b *LuaBot) cardList(cards []game.Card) *lua.LTable {
	t := b.L.NewTable()
	for _, c := range cards {
		t.Append(lua.LString(c.String()))
	}
	return t
}

// cardFromLua accepts a 1-based hand index or a card code.
func cardFromLua(v lua.LValue, hand []game.Card) (game.Card, error) {
	switch v := v.(type) {
	case lua.LNumber:
		n := int(v)
		if n < 1 || n > len(hand) {
			return game.Card{}, fmt.Errorf("lua: hand index %d out of range 1..%d", n, len(hand))
		}
		return hand[n-1], nil
	case lua.LString:
		return game.ParseCard(string(v))
	}
	return game.Card{}, fmt.Errorf("lua: expected a hand index or card code, got %s", v.Type())
}

func movesFromLua(v lua.LValue, hand []game.Card) (game.PlayTurnResponse, error) {
	if v == lua.LNil {
		return game.PlayTurnResponse{}, nil
	}
	list, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua: play_turn must return a table, got %s", v.Type())
	}
	resp := game.PlayTurnResponse{}
	for k := 1; k <= list.Len(); k++ {
		entry, ok := list.RawGetInt(k).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("lua: move %d is not a table", k)
		}
		card, err := cardFromLua(entry.RawGetString("card"), hand)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", k, err)
		}
		i, iok := entry.RawGetString("i").(lua.LNumber)
		j, jok := entry.RawGetString("j").(lua.LNumber)
		if !iok || !jok {
			return nil, fmt.Errorf("lua: move %d needs numeric i and j", k)
		}
		resp = append(resp, game.Move{Card: card, I: int(i), J: int(j)})
	}
	return resp, nil
}
