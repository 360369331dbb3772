package protocol

// Message types for the JSON protocol spoken between the judge and a bot.
// Every request is one JSON object on its own line; every request except
// "bye" gets exactly one JSON line back.

const (
	TypeNewGame       = "new_game"
	TypePlayFirstTurn = "play_first_turn"
	TypePlayTurn      = "play_turn"
	TypeBye           = "bye"
)

// --- Judge → Bot messages ---

// Request is the envelope for all judge-to-bot messages.
type Request struct {
	Type string `json:"type"`

	// For "new_game"
	Color string     `json:"color,omitempty"`
	Rules *RulesView `json:"rules,omitempty"`

	// For "play_first_turn" and "play_turn": the bot's hand
	Cards []CardJSON `json:"cards,omitempty"`

	// For "play_turn"
	Fields             []Field    `json:"fields,omitempty"`
	CardsWonByOpponent []CardJSON `json:"cards_won_by_opponent,omitempty"`
	Turn               int        `json:"turn,omitempty"`

	// For "bye"
	Winner string `json:"winner,omitempty"` // empty on a draw or abort
	Reason string `json:"reason,omitempty"`
}

// CardJSON is a card on the wire, e.g. {"suit":"♥","rank":"10"}.
type CardJSON struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// Field is one occupied board cell.
type Field struct {
	I     int      `json:"i"`
	J     int      `json:"j"`
	Card  CardJSON `json:"card"`
	Owner string   `json:"owner"`
}

// RulesView carries the match rules so bots can rebuild the board.
type RulesView struct {
	Rows            int   `json:"rows"`
	Cols            int   `json:"cols"`
	HandSize        int   `json:"hand_size"`
	RefillHands     bool  `json:"refill_hands"`
	MaxCardsPerTurn int   `json:"max_cards_per_turn"`
	EdgeFlank       bool  `json:"edge_flank"`
	BoardBonus      bool  `json:"board_bonus"`
	TurnTimeoutMs   int64 `json:"turn_timeout_ms"`
}

// --- Bot → Judge messages ---

// NewGameResponse acknowledges "new_game". Bots here send the empty object;
// the judge accepts any JSON value.
type NewGameResponse struct{}

// MoveJSON is one card placement in a "play_turn" response. Coordinates are
// pointers so a missing field can be told apart from zero.
type MoveJSON struct {
	Card CardJSON `json:"card"`
	I    *int     `json:"i"`
	J    *int     `json:"j"`
}
