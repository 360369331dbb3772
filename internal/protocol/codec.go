package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/peterkuimelis/gomori/internal/game"
)

// EncodeCard converts a card to its wire form.
func EncodeCard(c game.Card) CardJSON {
	return CardJSON{Suit: c.Suit.Symbol(), Rank: c.Rank.String()}
}

// DecodeCard parses a wire card. Unknown suits or ranks, and the zero value
// a JSON null decodes to, are protocol errors.
func DecodeCard(cj CardJSON) (game.Card, error) {
	if cj.Suit == "" || cj.Rank == "" {
		return game.Card{}, fmt.Errorf("%w: missing card", game.ErrProtocol)
	}
	suit, err := game.ParseSuit(cj.Suit)
	if err != nil {
		return game.Card{}, fmt.Errorf("%w: %w", game.ErrProtocol, err)
	}
	rank, err := game.ParseRank(cj.Rank)
	if err != nil {
		return game.Card{}, fmt.Errorf("%w: %w", game.ErrProtocol, err)
	}
	return game.NewCard(suit, rank)
}

func EncodeCards(cards []game.Card) []CardJSON {
	out := make([]CardJSON, len(cards))
	for i, c := range cards {
		out[i] = EncodeCard(c)
	}
	return out
}

func DecodeCards(cjs []CardJSON) ([]game.Card, error) {
	out := make([]game.Card, len(cjs))
	for i, cj := range cjs {
		c, err := DecodeCard(cj)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// EncodeBoard lists the occupied cells in row-major order.
func EncodeBoard(b *game.Board) []Field {
	var fields []Field
	for pc := range b.Cells() {
		fields = append(fields, Field{
			I:     pc.I,
			J:     pc.J,
			Card:  EncodeCard(pc.Card),
			Owner: pc.Owner.String(),
		})
	}
	return fields
}

// DecodeBoard rebuilds a rows x cols board from its fields.
func DecodeBoard(rows, cols int, fields []Field) (*game.Board, error) {
	cells := make([]game.PlacedCard, len(fields))
	for idx, f := range fields {
		card, err := DecodeCard(f.Card)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", idx, err)
		}
		owner, err := game.ParseColor(f.Owner)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %w", game.ErrProtocol, idx, err)
		}
		cells[idx] = game.PlacedCard{Coord: game.Coord{I: f.I, J: f.J}, Card: card, Owner: owner}
	}
	b, err := game.BoardFromSnapshot(rows, cols, cells)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", game.ErrProtocol, err)
	}
	return b, nil
}

// EncodeRules converts rules to their wire form.
func EncodeRules(r game.Rules) *RulesView {
	return &RulesView{
		Rows:            r.Rows,
		Cols:            r.Cols,
		HandSize:        r.HandSize,
		RefillHands:     r.RefillHands,
		MaxCardsPerTurn: r.MaxCardsPerTurn,
		EdgeFlank:       r.EdgeFlank,
		BoardBonus:      r.BoardBonus,
		TurnTimeoutMs:   r.TurnTimeout.Milliseconds(),
	}
}

// DecodeRules converts wire rules back. Nil means the default rules.
func DecodeRules(rv *RulesView) game.Rules {
	if rv == nil {
		return game.DefaultRules()
	}
	return game.Rules{
		Rows:            rv.Rows,
		Cols:            rv.Cols,
		HandSize:        rv.HandSize,
		RefillHands:     rv.RefillHands,
		MaxCardsPerTurn: rv.MaxCardsPerTurn,
		EdgeFlank:       rv.EdgeFlank,
		BoardBonus:      rv.BoardBonus,
		TurnTimeout:     time.Duration(rv.TurnTimeoutMs) * time.Millisecond,
	}
}

// EncodeMoves converts a response to its wire form.
func EncodeMoves(resp game.PlayTurnResponse) []MoveJSON {
	out := make([]MoveJSON, len(resp))
	for idx, mv := range resp {
		i, j := mv.I, mv.J
		out[idx] = MoveJSON{Card: EncodeCard(mv.Card), I: &i, J: &j}
	}
	return out
}

// DecodeMoves parses a "play_turn" response. Structural checks only:
// whether the cards are in hand or the cells are legal is for the resolver.
// Coordinates outside the rows x cols grid are rejected here.
func DecodeMoves(data []byte, rows, cols int) (game.PlayTurnResponse, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, fmt.Errorf("%w: null move list", game.ErrProtocol)
	}
	var moves []MoveJSON
	if err := json.Unmarshal(data, &moves); err != nil {
		return nil, fmt.Errorf("%w: moves: %w", game.ErrProtocol, err)
	}
	resp := make(game.PlayTurnResponse, 0, len(moves))
	for idx, m := range moves {
		card, err := DecodeCard(m.Card)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", idx, err)
		}
		if m.I == nil || m.J == nil {
			return nil, fmt.Errorf("%w: move %d lacks coordinates", game.ErrProtocol, idx)
		}
		if *m.I < 0 || *m.I >= rows || *m.J < 0 || *m.J >= cols {
			return nil, fmt.Errorf("%w: move %d: (%d,%d) outside the %dx%d grid", game.ErrProtocol, idx, *m.I, *m.J, rows, cols)
		}
		resp = append(resp, game.Move{Card: card, I: *m.I, J: *m.J})
	}
	return resp, nil
}

// DecodeFirstCard parses a "play_first_turn" response.
func DecodeFirstCard(data []byte) (game.Card, error) {
	var cj CardJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return game.Card{}, fmt.Errorf("%w: card: %w", game.ErrProtocol, err)
	}
	return DecodeCard(cj)
}
