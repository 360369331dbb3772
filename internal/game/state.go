package game

import (
	"fmt"
	"math/rand"
	"slices"
)

type Phase int

const (
	PhaseAwaitingFirstTurn Phase = iota
	PhaseInProgress
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingFirstTurn:
		return "awaiting_first_turn"
	case PhaseInProgress:
		return "in_progress"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// PlayerState is one side's private state during a match.
type PlayerState struct {
	Color    Color
	Hand     []Card // ordered; agents refer to cards by value
	DrawPile []Card // top of pile is the last element
	Captured CardsSet
}

// HasCard reports whether card is in the hand.
func (p *PlayerState) HasCard(card Card) bool {
	return slices.Contains(p.Hand, card)
}

// RemoveFromHand removes card, keeping the order of the rest.
func (p *PlayerState) RemoveFromHand(card Card) bool {
	idx := slices.Index(p.Hand, card)
	if idx < 0 {
		return false
	}
	p.Hand = slices.Delete(p.Hand, idx, idx+1)
	return true
}

// Refill draws from the pile until the hand holds size cards or the pile
// runs out. It returns the cards drawn.
func (p *PlayerState) Refill(size int) []Card {
	var drawn []Card
	for len(p.Hand) < size && len(p.DrawPile) > 0 {
		card := p.DrawPile[len(p.DrawPile)-1]
		p.DrawPile = p.DrawPile[:len(p.DrawPile)-1]
		p.Hand = append(p.Hand, card)
		drawn = append(drawn, card)
	}
	return drawn
}

func (p PlayerState) clone() PlayerState {
	p.Hand = slices.Clone(p.Hand)
	p.DrawPile = slices.Clone(p.DrawPile)
	return p
}

// MatchState aggregates everything a match mutates. It is owned by a single
// Match; agents only ever see copies.
type MatchState struct {
	Rules   Rules
	Board   *Board
	Players [2]PlayerState // indexed by Color
	Active  Color
	Turn    int
	Phase   Phase
	Passes  int // consecutive passes
}

// NewMatchState deals a fresh match. decks holds each side's cards; a nil
// entry means that side's 26 cards. The decks are shuffled with rng unless
// rng is nil.
func NewMatchState(rules Rules, decks [2][]Card, first Color, rng *rand.Rand) (*MatchState, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	st := &MatchState{
		Rules:  rules,
		Board:  NewBoard(rules.Rows, rules.Cols),
		Active: first,
		Phase:  PhaseAwaitingFirstTurn,
	}
	for _, color := range Colors {
		deck := decks[color]
		if deck == nil {
			deck = DeckFor(color)
		}
		pile := slices.Clone(deck)
		if rng != nil {
			rng.Shuffle(len(pile), func(a, b int) { pile[a], pile[b] = pile[b], pile[a] })
		}
		// Deal from the top of the pile, which is its end.
		n := min(rules.HandSize, len(pile))
		hand := slices.Clone(pile[len(pile)-n:])
		slices.Reverse(hand)
		st.Players[color] = PlayerState{
			Color:    color,
			Hand:     hand,
			DrawPile: pile[:len(pile)-n],
		}
	}
	if err := st.checkDistinct(); err != nil {
		return nil, err
	}
	return st, nil
}

// checkDistinct rejects decks that share or repeat cards.
func (s *MatchState) checkDistinct() error {
	var seen CardsSet
	for _, p := range s.Players {
		for _, c := range slices.Concat(p.Hand, p.DrawPile) {
			if !c.Valid() {
				return fmt.Errorf("%w: %v in %s deck", ErrInvalidCard, c, p.Color)
			}
			if seen.Contains(c) {
				return fmt.Errorf("%w: %s dealt twice", ErrInvalidCard, c)
			}
			seen = seen.Insert(c)
		}
	}
	return nil
}

// Player returns the state of the given side.
func (s *MatchState) Player(c Color) *PlayerState {
	return &s.Players[c]
}

// Current returns the active side's state.
func (s *MatchState) Current() *PlayerState {
	return &s.Players[s.Active]
}

// CanMove reports whether the side holds a card with a legal cell.
func (s *MatchState) CanMove(c Color) bool {
	for _, card := range s.Players[c].Hand {
		if s.Board.CanPlace(card, c) {
			return true
		}
	}
	return false
}

// CardsInPlay counts cards on the board, in hands, in draw piles and in
// captured sets. It is constant for the whole match.
func (s *MatchState) CardsInPlay() int {
	n := s.Board.Occupied()
	for _, p := range s.Players {
		n += len(p.Hand) + len(p.DrawPile) + p.Captured.Len()
	}
	return n
}

// Scores returns each side's score: captured cards, plus owned board cards
// when the board bonus rule is on.
func (s *MatchState) Scores() [2]int {
	var scores [2]int
	for _, c := range Colors {
		scores[c] = s.Players[c].Captured.Len()
	}
	if s.Rules.BoardBonus {
		for pc := range s.Board.Cells() {
			scores[pc.Owner]++
		}
	}
	return scores
}

// Clone returns a deep copy.
func (s *MatchState) Clone() *MatchState {
	cp := *s
	cp.Board = s.Board.Clone()
	for i := range cp.Players {
		cp.Players[i] = s.Players[i].clone()
	}
	return &cp
}
