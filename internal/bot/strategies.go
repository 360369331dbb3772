package bot

import (
	"math/rand"

	"github.com/peterkuimelis/gomori/internal/game"
)

// placements lists every legal (card, cell) pair for the hand.
func placements(board *game.Board, hand []game.Card, owner game.Color) []game.Move {
	var moves []game.Move
	for _, card := range hand {
		for c := range board.LegalCellsFor(card, owner) {
			moves = append(moves, game.Move{Card: card, I: c.I, J: c.J})
		}
	}
	return moves
}

// isFace reports whether the card is a jack or better.
func isFace(c game.Card) bool {
	return c.Rank >= game.Jack
}

// --- IndexBot ---

// IndexBot always reaches for the card at a fixed hand position and plays it
// on its first legal cell. When that card cannot be placed it tries the
// following ones.
type IndexBot struct {
	Index int
	color game.Color
}

func (b *IndexBot) NewGame(color game.Color, rules game.Rules) error {
	b.color = color
	return nil
}

func (b *IndexBot) PlayFirstTurn(hand []game.Card) (game.Card, error) {
	return hand[min(b.Index, len(hand)-1)], nil
}

func (b *IndexBot) PlayTurn(view game.TurnView) (game.PlayTurnResponse, error) {
	n := len(view.Hand)
	for k := 0; k < n; k++ {
		card := view.Hand[(min(b.Index, n-1)+k)%n]
		for c := range view.Board.LegalCellsFor(card, b.color) {
			return game.PlayTurnResponse{{Card: card, I: c.I, J: c.J}}, nil
		}
	}
	return game.PlayTurnResponse{}, nil
}

// --- RandomBot ---

// RandomBot plays a uniformly random legal placement.
type RandomBot struct {
	rng   *rand.Rand
	color game.Color
}

func NewRandomBot(seed int64) *RandomBot {
	return &RandomBot{rng: rand.New(rand.NewSource(seed))}
}

func (b *RandomBot) NewGame(color game.Color, rules game.Rules) error {
	b.color = color
	return nil
}

func (b *RandomBot) PlayFirstTurn(hand []game.Card) (game.Card, error) {
	return hand[b.rng.Intn(len(hand))], nil
}

func (b *RandomBot) PlayTurn(view game.TurnView) (game.PlayTurnResponse, error) {
	moves := placements(view.Board, view.Hand, b.color)
	if len(moves) == 0 {
		return game.PlayTurnResponse{}, nil
	}
	return game.PlayTurnResponse{moves[b.rng.Intn(len(moves))]}, nil
}

// --- GreedyBot ---

// GreedyBot plays the placement that captures the most cards right away,
// breaking ties at random. It opens with a low card.
type GreedyBot struct {
	rng     *rand.Rand
	color   game.Color
	rules   game.Rules
	counter *CardCounter
}

func NewGreedyBot(seed int64) *GreedyBot {
	return &GreedyBot{rng: rand.New(rand.NewSource(seed)), rules: game.DefaultRules()}
}

// UseCounter lets the bot spend its face cards once its draw pile is empty.
func (b *GreedyBot) UseCounter(c *CardCounter) {
	b.counter = c
}

func (b *GreedyBot) NewGame(color game.Color, rules game.Rules) error {
	b.color = color
	b.rules = rules
	return nil
}

func (b *GreedyBot) PlayFirstTurn(hand []game.Card) (game.Card, error) {
	// Don't waste a face card on the opening
	for _, card := range hand {
		if !isFace(card) {
			return card, nil
		}
	}
	return hand[0], nil
}

func (b *GreedyBot) PlayTurn(view game.TurnView) (game.PlayTurnResponse, error) {
	var top []game.Move
	topScore := -1
	for _, mv := range placements(view.Board, view.Hand, b.color) {
		won, err := view.Board.Preview(mv.Card, b.color, mv.I, mv.J, b.rules.EdgeFlank)
		if err != nil {
			return nil, err
		}
		score := 2 * len(won)
		// Keep face cards for later when nothing is at stake.
		if !isFace(mv.Card) && !b.endgame() {
			score++
		}
		switch {
		case score > topScore:
			top = []game.Move{mv}
			topScore = score
		case score == topScore:
			top = append(top, mv)
		}
	}
	if len(top) == 0 {
		return game.PlayTurnResponse{}, nil
	}
	return game.PlayTurnResponse{top[b.rng.Intn(len(top))]}, nil
}

// endgame reports whether the counter knows no more cards are coming.
func (b *GreedyBot) endgame() bool {
	return b.counter != nil && b.counter.DrawPile.IsEmpty()
}
