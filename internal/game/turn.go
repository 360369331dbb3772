package game

import (
	"fmt"
	"slices"
)

// Move places one card from the hand on a cell.
type Move struct {
	Card Card
	I, J int
}

// PlayTurnResponse is an agent's answer to a turn request: the moves to
// apply, in order. An empty response is a pass.
type PlayTurnResponse []Move

// TurnOutcome summarizes a resolved turn.
type TurnOutcome struct {
	Placed   []PlacedCard
	Captured []Card
	Drawn    []Card
	Passed   bool
}

// ResolveFirstTurn applies the opening card. It goes on the first opening
// cell; no capture is possible on an empty board.
func ResolveFirstTurn(st *MatchState, card Card) (TurnOutcome, error) {
	p := st.Current()
	if !p.HasCard(card) {
		return TurnOutcome{}, fmt.Errorf("%w: %s", ErrCardNotInHand, card)
	}
	if !st.Board.IsEmpty() {
		return TurnOutcome{}, fmt.Errorf("%w: opening turn on a non-empty board", ErrInternal)
	}
	at := st.Board.OpeningCells()[0]
	if err := st.Board.Place(card, p.Color, at.I, at.J); err != nil {
		return TurnOutcome{}, fmt.Errorf("%w: place opening card: %v", ErrInternal, err)
	}
	p.RemoveFromHand(card)
	out := TurnOutcome{
		Placed: []PlacedCard{{Coord: at, Card: card, Owner: p.Color}},
	}
	if st.Rules.RefillHands {
		out.Drawn = p.Refill(st.Rules.HandSize)
	}
	return out, nil
}

// ResolveTurn validates resp against the active side's hand and the board,
// applies it and resolves captures. On error st is left unchanged.
func ResolveTurn(st *MatchState, resp PlayTurnResponse) (TurnOutcome, error) {
	if len(resp) == 0 {
		if st.CanMove(st.Active) {
			return TurnOutcome{}, ErrMustPlayIfPossible
		}
		return TurnOutcome{Passed: true}, nil
	}
	for idx, mv := range resp {
		if !st.Current().HasCard(mv.Card) {
			return TurnOutcome{}, &MoveError{Index: idx, Move: mv, Err: fmt.Errorf("%w: %s", ErrCardNotInHand, mv.Card)}
		}
	}
	if len(resp) > st.Rules.MaxCardsPerTurn {
		return TurnOutcome{}, fmt.Errorf("%w: %d played, at most %d allowed", ErrTooManyCards, len(resp), st.Rules.MaxCardsPerTurn)
	}

	// Work on copies so a rejected move leaves nothing behind.
	board := st.Board.Clone()
	player := st.Current().clone()

	var out TurnOutcome
	for idx, mv := range resp {
		if err := applyMove(board, &player, out.Placed, mv); err != nil {
			return TurnOutcome{}, &MoveError{Index: idx, Move: mv, Err: err}
		}
		out.Placed = append(out.Placed, PlacedCard{Coord: Coord{mv.I, mv.J}, Card: mv.Card, Owner: player.Color})
	}

	// Captures are evaluated once every move of the turn is on the board.
	var captured []Coord
	for _, pc := range out.Placed {
		for _, c := range board.captureLines(pc.I, pc.J, player.Color, st.Rules.EdgeFlank) {
			if !slices.Contains(captured, c) {
				captured = append(captured, c)
			}
		}
	}
	for _, c := range captured {
		cell := board.remove(c.I, c.J)
		player.Captured = player.Captured.Insert(cell.Card)
		out.Captured = append(out.Captured, cell.Card)
	}

	if st.Rules.RefillHands {
		out.Drawn = player.Refill(st.Rules.HandSize)
	}

	st.Board = board
	st.Players[player.Color] = player
	return out, nil
}

func applyMove(board *Board, player *PlayerState, placed []PlacedCard, mv Move) error {
	if !player.HasCard(mv.Card) {
		return fmt.Errorf("%w: %s", ErrCardNotInHand, mv.Card)
	}
	for _, pc := range placed {
		if pc.I == mv.I && pc.J == mv.J {
			return ErrDuplicateTarget
		}
	}
	cell, err := board.CellAt(mv.I, mv.J)
	if err != nil {
		return err
	}
	if cell.Occupied {
		return fmt.Errorf("%w: %w", ErrIllegalPlacement, ErrCellOccupied)
	}
	if !board.IsLegal(mv.Card, player.Color, mv.I, mv.J) {
		return fmt.Errorf("%w: %s at (%d,%d) is not next to a card", ErrIllegalPlacement, mv.Card, mv.I, mv.J)
	}
	if err := board.Place(mv.Card, player.Color, mv.I, mv.J); err != nil {
		return err
	}
	player.RemoveFromHand(mv.Card)
	return nil
}
