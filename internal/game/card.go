package game

import (
	"fmt"
	"strings"
)

// --- Enums ---

type Suit uint8

const (
	Diamond Suit = iota
	Heart
	Spade
	Club
)

const numSuits = 4

func (s Suit) Valid() bool {
	return s < numSuits
}

// Symbol returns the unicode suit symbol used on the wire and in card codes.
func (s Suit) Symbol() string {
	switch s {
	case Diamond:
		return "♦"
	case Heart:
		return "♥"
	case Spade:
		return "♠"
	case Club:
		return "♣"
	default:
		return "?"
	}
}

func (s Suit) String() string {
	switch s {
	case Diamond:
		return "Diamond"
	case Heart:
		return "Heart"
	case Spade:
		return "Spade"
	case Club:
		return "Club"
	default:
		return "Unknown"
	}
}

// Color returns the side that owns cards of this suit.
func (s Suit) Color() Color {
	if s == Spade || s == Club {
		return Black
	}
	return Red
}

// ParseSuit accepts the unicode symbol.
func ParseSuit(s string) (Suit, error) {
	switch s {
	case "♦":
		return Diamond, nil
	case "♥":
		return Heart, nil
	case "♠":
		return Spade, nil
	case "♣":
		return Club, nil
	}
	return 0, fmt.Errorf("%w: unknown suit %q", ErrInvalidCard, s)
}

type Rank uint8

const (
	Two Rank = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const numRanks = 13

func (r Rank) Valid() bool {
	return r < numRanks
}

// String returns the rank label ("2".."10", "J", "Q", "K", "A").
func (r Rank) String() string {
	switch {
	case r <= Ten:
		return fmt.Sprintf("%d", int(r)+2)
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// code is the single-character rank used in card codes; ten is "T".
func (r Rank) code() string {
	if r == Ten {
		return "T"
	}
	return r.String()
}

// ParseRank accepts both the label form ("10") and the code form ("T").
func ParseRank(s string) (Rank, error) {
	switch strings.ToUpper(s) {
	case "T", "10":
		return Ten, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	}
	if len(s) == 1 && s[0] >= '2' && s[0] <= '9' {
		return Rank(s[0] - '2'), nil
	}
	return 0, fmt.Errorf("%w: unknown rank %q", ErrInvalidCard, s)
}

// --- Card ---

// Card is one card of the 52-card deck. It is a comparable value; two cards
// with the same suit and rank are the same card.
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard builds a card, rejecting values outside the deck.
func NewCard(suit Suit, rank Rank) (Card, error) {
	if !suit.Valid() || !rank.Valid() {
		return Card{}, fmt.Errorf("%w: suit %d rank %d", ErrInvalidCard, suit, rank)
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// MustCard is NewCard for literals known to be valid.
func MustCard(code string) Card {
	c, err := ParseCard(code)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCard parses a two-character code: rank ("2".."9", "T", "J", "Q", "K", "A")
// followed by the suit symbol, e.g. "T♥".
func ParseCard(code string) (Card, error) {
	runes := []rune(code)
	if len(runes) != 2 {
		return Card{}, fmt.Errorf("%w: card code %q must be two characters", ErrInvalidCard, code)
	}
	rank, err := ParseRank(string(runes[0]))
	if err != nil {
		return Card{}, err
	}
	suit, err := ParseSuit(string(runes[1]))
	if err != nil {
		return Card{}, err
	}
	return Card{Suit: suit, Rank: rank}, nil
}

func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Rank.Valid()
}

// Index orders cards by rank first; it is the bit position in a CardsSet.
func (c Card) Index() int {
	return int(c.Rank)*numSuits + int(c.Suit)
}

// CardFromIndex is the inverse of Index.
func CardFromIndex(idx int) (Card, error) {
	if idx < 0 || idx >= DeckSize {
		return Card{}, fmt.Errorf("%w: index %d", ErrInvalidCard, idx)
	}
	return Card{Suit: Suit(idx % numSuits), Rank: Rank(idx / numSuits)}, nil
}

// Less orders cards by Index.
func (c Card) Less(other Card) bool {
	return c.Index() < other.Index()
}

// Color is the side the card belongs to.
func (c Card) Color() Color {
	return c.Suit.Color()
}

func (c Card) String() string {
	return c.Rank.code() + c.Suit.Symbol()
}

// Unicode returns the glyph from the Playing Cards unicode block.
func (c Card) Unicode() string {
	var row rune
	switch c.Suit {
	case Spade:
		row = 0
	case Heart:
		row = 1
	case Diamond:
		row = 2
	case Club:
		row = 3
	}
	var col rune
	switch {
	case c.Rank == Ace:
		col = 1
	case c.Rank <= Jack:
		col = rune(c.Rank) + 2
	default:
		// skip the knight column
		col = rune(c.Rank) + 3
	}
	return string(0x1F0A0 + 16*row + col)
}

// --- Deck ---

const DeckSize = numSuits * numRanks

// FullDeck returns all 52 cards in index order.
func FullDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for r := Rank(0); r < numRanks; r++ {
		for s := Suit(0); s < numSuits; s++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// DeckFor returns the 26 cards owned by the given side, in index order.
func DeckFor(color Color) []Card {
	var deck []Card
	for _, c := range FullDeck() {
		if c.Color() == color {
			deck = append(deck, c)
		}
	}
	return deck
}
