package game

import (
	"iter"
	"math/bits"
	"strings"
)

// CardsSet is an immutable set of cards backed by a 52-bit mask.
// Methods that "modify" the set return a new value.
type CardsSet struct {
	bits uint64
}

const validBits = uint64(1)<<DeckSize - 1

var (
	// RedCards holds every diamond and heart.
	RedCards = NewCardsSet(DeckFor(Red)...)
	// BlackCards holds every spade and club.
	BlackCards = NewCardsSet(DeckFor(Black)...)
)

func NewCardsSet(cards ...Card) CardsSet {
	var s CardsSet
	for _, c := range cards {
		s = s.Insert(c)
	}
	return s
}

func (s CardsSet) Len() int {
	return bits.OnesCount64(s.bits)
}

func (s CardsSet) IsEmpty() bool {
	return s.bits == 0
}

func (s CardsSet) Contains(c Card) bool {
	return s.bits&(1<<c.Index()) != 0
}

func (s CardsSet) Insert(c Card) CardsSet {
	return CardsSet{bits: s.bits | 1<<c.Index()}
}

func (s CardsSet) Remove(c Card) CardsSet {
	return CardsSet{bits: s.bits &^ (1 << c.Index())}
}

func (s CardsSet) Union(o CardsSet) CardsSet {
	return CardsSet{bits: s.bits | o.bits}
}

func (s CardsSet) Intersect(o CardsSet) CardsSet {
	return CardsSet{bits: s.bits & o.bits}
}

func (s CardsSet) Difference(o CardsSet) CardsSet {
	return CardsSet{bits: s.bits &^ o.bits}
}

// Complement returns every deck card not in s.
func (s CardsSet) Complement() CardsSet {
	return CardsSet{bits: ^s.bits & validBits}
}

// All yields the cards by ascending index (rank first).
func (s CardsSet) All() iter.Seq[Card] {
	return func(yield func(Card) bool) {
		rest := s.bits
		for rest != 0 {
			idx := bits.TrailingZeros64(rest)
			rest &^= 1 << idx
			c, _ := CardFromIndex(idx)
			if !yield(c) {
				return
			}
		}
	}
}

// Cards returns the members as a slice in index order.
func (s CardsSet) Cards() []Card {
	cards := make([]Card, 0, s.Len())
	for c := range s.All() {
		cards = append(cards, c)
	}
	return cards
}

func (s CardsSet) String() string {
	var parts []string
	for c := range s.All() {
		parts = append(parts, c.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}
