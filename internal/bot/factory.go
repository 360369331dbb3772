package bot

import (
	"fmt"
	"sort"

	"github.com/peterkuimelis/gomori/internal/protocol"
)

// Strategy names accepted by New.
const (
	StrategyIndex    = "index"
	StrategyRandom   = "random"
	StrategyGreedy   = "greedy"
	StrategyCounting = "counting-greedy"
)

// DefaultIndex is the hand position IndexBot reaches for.
const DefaultIndex = 2

// New creates a built-in strategy by name.
func New(name string, seed int64) (protocol.Bot, error) {
	switch name {
	case StrategyIndex:
		return &IndexBot{Index: DefaultIndex}, nil
	case StrategyRandom:
		return NewRandomBot(seed), nil
	case StrategyGreedy:
		return NewGreedyBot(seed), nil
	case StrategyCounting:
		return WithCardCounting(NewGreedyBot(seed)), nil
	default:
		return nil, fmt.Errorf("unknown bot strategy %q (have %v)", name, Names())
	}
}

// Names lists the built-in strategies.
func Names() []string {
	names := []string{StrategyIndex, StrategyRandom, StrategyGreedy, StrategyCounting}
	sort.Strings(names)
	return names
}
