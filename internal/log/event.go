package log

// EventType enumerates all observable match events.
type EventType int

const (
	EventMatchStart EventType = iota
	EventNewTurn
	EventPlace
	EventCapture
	EventDraw
	EventPass
	EventForfeit
	EventAbort
	EventWin
	EventTie
)

func (e EventType) String() string {
	switch e {
	case EventMatchStart:
		return "MatchStart"
	case EventNewTurn:
		return "NewTurn"
	case EventPlace:
		return "Place"
	case EventCapture:
		return "Capture"
	case EventDraw:
		return "Draw"
	case EventPass:
		return "Pass"
	case EventForfeit:
		return "Forfeit"
	case EventAbort:
		return "Abort"
	case EventWin:
		return "Win"
	case EventTie:
		return "Tie"
	default:
		return "Unknown"
	}
}

// GameEvent represents a single observable event in a match.
type GameEvent struct {
	Seq     int       // monotonic sequence number
	Turn    int       // 0 for the opening turn
	Phase   string    // match phase name
	Player  int       // acting side: 0 black, 1 red
	Type    EventType // event type
	Card    string    // card code (if applicable)
	Details string    // human-readable detail string
}
