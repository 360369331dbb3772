package log

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// EventLogger is the interface for logging match events.
type EventLogger interface {
	Log(event GameEvent)
	Events() []GameEvent
}

// --- MemoryLogger: stores events in memory for test assertions ---

type MemoryLogger struct {
	mu     sync.Mutex
	events []GameEvent
	seq    int
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(event GameEvent) {
	l.record(event)
}

// record stamps the sequence number and stores the event.
func (l *MemoryLogger) record(event GameEvent) GameEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	event.Seq = l.seq
	l.events = append(l.events, event)
	return event
}

func (l *MemoryLogger) Events() []GameEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]GameEvent, len(l.events))
	copy(out, l.events)
	return out
}

// EventsOfType returns all events matching the given type.
func (l *MemoryLogger) EventsOfType(t EventType) []GameEvent {
	var result []GameEvent
	for _, e := range l.Events() {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or a zero event if none.
func (l *MemoryLogger) LastEvent() GameEvent {
	events := l.Events()
	if len(events) == 0 {
		return GameEvent{}
	}
	return events[len(events)-1]
}

// --- TextLogger: writes human-readable lines to an io.Writer ---

type TextLogger struct {
	MemoryLogger
	w io.Writer
}

func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

func (l *TextLogger) Log(event GameEvent) {
	event = l.record(event)
	fmt.Fprintln(l.w, FormatEvent(event))
}

// --- ZapLogger: forwards events to a structured logger ---

type ZapLogger struct {
	MemoryLogger
	logger *zap.Logger
}

func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: logger}
}

func (l *ZapLogger) Log(event GameEvent) {
	event = l.record(event)
	fields := []zap.Field{
		zap.Int("seq", event.Seq),
		zap.Int("turn", event.Turn),
		zap.String("phase", event.Phase),
		zap.String("player", playerName(event.Player)),
		zap.Stringer("type", event.Type),
	}
	if event.Card != "" {
		fields = append(fields, zap.String("card", event.Card))
	}
	switch event.Type {
	case EventForfeit, EventAbort:
		l.logger.Warn(event.Details, fields...)
	case EventNewTurn, EventDraw:
		l.logger.Debug(event.Details, fields...)
	default:
		l.logger.Info(event.Details, fields...)
	}
}

// --- Formatting ---

// playerName returns "Black" or "Red" for display.
func playerName(p int) string {
	switch p {
	case 0:
		return "Black"
	case 1:
		return "Red"
	default:
		return "-"
	}
}

// FormatEvent formats a single event as a human-readable line.
func FormatEvent(e GameEvent) string {
	phase := e.Phase
	// Pad phase to 20 chars for alignment
	for len(phase) < 20 {
		phase += " "
	}
	return fmt.Sprintf("T%-2d %s| %s", e.Turn, phase, e.Details)
}

// FormatAll formats all events as a multi-line string.
func FormatAll(events []GameEvent) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(FormatEvent(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- Helper constructors for common events ---

func NewMatchStartEvent(matchID string, first int, rows, cols int) GameEvent {
	return GameEvent{
		Phase:   "awaiting_first_turn",
		Player:  first,
		Type:    EventMatchStart,
		Details: fmt.Sprintf("Match %s on a %dx%d board, %s opens", matchID, rows, cols, playerName(first)),
	}
}

func NewTurnEvent(turn int, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   "in_progress",
		Player:  player,
		Type:    EventNewTurn,
		Details: fmt.Sprintf("=== Turn %d (%s) ===", turn, playerName(player)),
	}
}

func NewPlaceEvent(turn int, phase string, player int, card string, i, j int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventPlace,
		Card:    card,
		Details: fmt.Sprintf("%s places %s at (%d,%d)", playerName(player), card, i, j),
	}
}

func NewCaptureEvent(turn int, player int, cards []string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   "in_progress",
		Player:  player,
		Type:    EventCapture,
		Card:    strings.Join(cards, " "),
		Details: fmt.Sprintf("%s captures %s", playerName(player), strings.Join(cards, ", ")),
	}
}

func NewDrawEvent(turn int, phase string, player int, count int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventDraw,
		Details: fmt.Sprintf("%s draws %d card(s)", playerName(player), count),
	}
}

func NewPassEvent(turn int, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   "in_progress",
		Player:  player,
		Type:    EventPass,
		Details: fmt.Sprintf("%s has no legal move and passes", playerName(player)),
	}
}

func NewForfeitEvent(turn int, phase string, offender int, reason string, err error) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  offender,
		Type:    EventForfeit,
		Details: fmt.Sprintf("%s forfeits (%s): %v", playerName(offender), reason, err),
	}
}

func NewAbortEvent(turn int, phase string, err error) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  -1,
		Type:    EventAbort,
		Details: fmt.Sprintf("Match aborted: %v", err),
	}
}

func NewWinEvent(turn int, winner int, reason string, scores [2]int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   "finished",
		Player:  winner,
		Type:    EventWin,
		Details: fmt.Sprintf("%s wins %d-%d (%s)", playerName(winner), scores[winner], scores[1-winner], reason),
	}
}

func NewTieEvent(turn int, reason string, scores [2]int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   "finished",
		Player:  -1,
		Type:    EventTie,
		Details: fmt.Sprintf("Draw %d-%d (%s)", scores[0], scores[1], reason),
	}
}
