package bot

import (
	"github.com/peterkuimelis/gomori/internal/game"
	"github.com/peterkuimelis/gomori/internal/protocol"
)

// CardCounter is what a bot can infer about the cards from what it has
// been shown so far.
type CardCounter struct {
	DrawPile          game.CardsSet // cards still in our draw pile
	OpponentAvailable game.CardsSet // opponent's draw pile and hand; the two can't be told apart
	WonSelf           game.CardsSet
	WonOpponent       game.CardsSet
}

func newCardCounter(color game.Color) CardCounter {
	own, theirs := game.BlackCards, game.RedCards
	if color == game.Red {
		own, theirs = theirs, own
	}
	return CardCounter{DrawPile: own, OpponentAvailable: theirs}
}

// CounterUser is implemented by strategies that read a CardCounter kept up
// to date by CardCounting.
type CounterUser interface {
	UseCounter(c *CardCounter)
}

// CardCounting wraps a strategy and counts cards on its behalf.
type CardCounting struct {
	bot     protocol.Bot
	rules   game.Rules
	color   game.Color
	Counter CardCounter
}

func WithCardCounting(b protocol.Bot) *CardCounting {
	cc := &CardCounting{bot: b, rules: game.DefaultRules()}
	if u, ok := b.(CounterUser); ok {
		u.UseCounter(&cc.Counter)
	}
	return cc
}

func (cc *CardCounting) NewGame(color game.Color, rules game.Rules) error {
	cc.color = color
	cc.rules = rules
	cc.Counter = newCardCounter(color)
	return cc.bot.NewGame(color, rules)
}

func (cc *CardCounting) PlayFirstTurn(hand []game.Card) (game.Card, error) {
	cc.Counter.DrawPile = cc.Counter.DrawPile.Difference(game.NewCardsSet(hand...))
	return cc.bot.PlayFirstTurn(hand)
}

func (cc *CardCounting) PlayTurn(view game.TurnView) (game.PlayTurnResponse, error) {
	c := &cc.Counter
	c.DrawPile = c.DrawPile.Difference(game.NewCardsSet(view.Hand...))
	c.WonOpponent = c.WonOpponent.Union(view.OpponentCaptured)
	c.OpponentAvailable = c.OpponentAvailable.Difference(view.OpponentCaptured)
	for pc := range view.Board.Cells() {
		c.OpponentAvailable = c.OpponentAvailable.Remove(pc.Card)
	}

	resp, err := cc.bot.PlayTurn(view)
	if err != nil {
		return nil, err
	}
	board := view.Board.Clone()
	for _, mv := range resp {
		won, err := board.Preview(mv.Card, cc.color, mv.I, mv.J, cc.rules.EdgeFlank)
		if err != nil {
			// Let the judge handle the illegal move.
			return resp, nil
		}
		c.WonSelf = c.WonSelf.Union(game.NewCardsSet(won...))
		if err := board.Place(mv.Card, cc.color, mv.I, mv.J); err != nil {
			return resp, nil
		}
	}
	return resp, nil
}
