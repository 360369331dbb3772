package game

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultBoardSize       = 4
	DefaultHandSize        = 5
	DefaultMaxCardsPerTurn = 1
	DefaultTurnTimeout     = 5 * time.Second
)

// Rules holds the tunable parameters of a match.
type Rules struct {
	Rows            int           `yaml:"rows"`
	Cols            int           `yaml:"cols"`
	HandSize        int           `yaml:"hand_size"`
	RefillHands     bool          `yaml:"refill_hands"`
	MaxCardsPerTurn int           `yaml:"max_cards_per_turn"`
	EdgeFlank       bool          `yaml:"edge_flank"` // board edge closes a capture line
	BoardBonus      bool          `yaml:"board_bonus"`
	TurnTimeout     time.Duration `yaml:"turn_timeout"`
}

// DefaultRules returns the standard 4x4 game.
func DefaultRules() Rules {
	return Rules{
		Rows:            DefaultBoardSize,
		Cols:            DefaultBoardSize,
		HandSize:        DefaultHandSize,
		RefillHands:     true,
		MaxCardsPerTurn: DefaultMaxCardsPerTurn,
		EdgeFlank:       true,
		TurnTimeout:     DefaultTurnTimeout,
	}
}

func (r Rules) Validate() error {
	var errs []error
	if r.Rows <= 0 || r.Cols <= 0 {
		errs = append(errs, fmt.Errorf("board must be at least 1x1, got %dx%d", r.Rows, r.Cols))
	}
	if r.HandSize <= 0 {
		errs = append(errs, fmt.Errorf("hand_size must be positive, got %d", r.HandSize))
	}
	if r.MaxCardsPerTurn <= 0 {
		errs = append(errs, fmt.Errorf("max_cards_per_turn must be positive, got %d", r.MaxCardsPerTurn))
	}
	if r.TurnTimeout < 0 {
		errs = append(errs, fmt.Errorf("turn_timeout must not be negative, got %s", r.TurnTimeout))
	}
	return errors.Join(errs...)
}
