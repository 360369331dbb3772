package game

import (
	"errors"
	"fmt"
)

// Rule violations. Any of these raised while resolving an agent's turn
// forfeits the match for that agent.
var (
	ErrOutOfBounds        = errors.New("coordinates out of bounds")
	ErrCellOccupied       = errors.New("cell already occupied")
	ErrCardNotInHand      = errors.New("card not in hand")
	ErrIllegalPlacement   = errors.New("illegal placement")
	ErrDuplicateTarget    = errors.New("cell targeted twice in one turn")
	ErrMustPlayIfPossible = errors.New("passed while a legal move exists")
	ErrTooManyCards       = errors.New("too many cards played in one turn")
	ErrInvalidCard        = errors.New("invalid card")
)

// Agent failures. These also forfeit the match.
var (
	ErrProtocol     = errors.New("protocol error")
	ErrAgentTimeout = errors.New("agent timed out")
	ErrAgentFailed  = errors.New("agent failed")
	ErrAborted      = errors.New("match aborted")
)

// ErrInternal marks an engine bug. It is never blamed on an agent; Match.Run
// returns it to the caller instead of recording a forfeit.
var ErrInternal = errors.New("internal engine error")

// Reason is the recorded cause of a match ending.
type Reason string

const (
	ReasonBoardFull          Reason = "board_full"
	ReasonHandsEmpty         Reason = "hands_empty"
	ReasonBothPassed         Reason = "both_passed"
	ReasonOutOfBounds        Reason = "out_of_bounds"
	ReasonCellOccupied       Reason = "cell_occupied"
	ReasonCardNotInHand      Reason = "card_not_in_hand"
	ReasonIllegalPlacement   Reason = "illegal_placement"
	ReasonDuplicateTarget    Reason = "duplicate_target"
	ReasonMustPlayIfPossible Reason = "must_play_if_possible"
	ReasonTooManyCards       Reason = "too_many_cards"
	ReasonProtocolError      Reason = "protocol_error"
	ReasonAgentTimeout       Reason = "agent_timeout"
	ReasonAgentFailed        Reason = "agent_failed"
	ReasonAborted            Reason = "aborted"
)

var reasonTable = []struct {
	err    error
	reason Reason
}{
	{ErrOutOfBounds, ReasonOutOfBounds},
	{ErrCellOccupied, ReasonCellOccupied},
	{ErrCardNotInHand, ReasonCardNotInHand},
	{ErrIllegalPlacement, ReasonIllegalPlacement},
	{ErrDuplicateTarget, ReasonDuplicateTarget},
	{ErrMustPlayIfPossible, ReasonMustPlayIfPossible},
	{ErrTooManyCards, ReasonTooManyCards},
	// An agent naming a card outside the deck sent malformed data.
	{ErrInvalidCard, ReasonProtocolError},
	{ErrProtocol, ReasonProtocolError},
	{ErrAgentTimeout, ReasonAgentTimeout},
	{ErrAborted, ReasonAborted},
}

// ReasonFor maps an agent-caused error to its reason code. Errors outside
// the taxonomy count as a generic agent failure.
func ReasonFor(err error) Reason {
	for _, entry := range reasonTable {
		if errors.Is(err, entry.err) {
			return entry.reason
		}
	}
	return ReasonAgentFailed
}

// IsForfeit reports whether the reason ends the match by forfeit.
func (r Reason) IsForfeit() bool {
	switch r {
	case ReasonBoardFull, ReasonHandsEmpty, ReasonBothPassed:
		return false
	}
	return true
}

// MoveError annotates a rule violation with the offending move.
type MoveError struct {
	Index int // position in the PlayTurnResponse
	Move  Move
	Err   error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %d (%s at %d,%d): %v", e.Index+1, e.Move.Card, e.Move.I, e.Move.J, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}
