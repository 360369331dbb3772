package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMemoryLoggerSequence(t *testing.T) {
	l := NewMemoryLogger()
	require.Equal(t, GameEvent{}, l.LastEvent())

	l.Log(NewMatchStartEvent("m1", 0, 4, 4))
	l.Log(NewTurnEvent(1, 1))
	l.Log(NewPlaceEvent(1, "in_progress", 1, "7♥", 1, 2))
	l.Log(NewTurnEvent(2, 0))

	events := l.Events()
	require.Len(t, events, 4)
	for i, e := range events {
		require.Equal(t, i+1, e.Seq)
	}
	require.Len(t, l.EventsOfType(EventNewTurn), 2)
	require.Equal(t, EventNewTurn, l.LastEvent().Type)

	// Events hands out a copy.
	events[0].Details = "changed"
	require.NotEqual(t, "changed", l.Events()[0].Details)
}

func TestEventDetails(t *testing.T) {
	tests := map[string]struct {
		event GameEvent
		want  string
	}{
		"start":   {NewMatchStartEvent("abc", 1, 3, 5), "Match abc on a 3x5 board, Red opens"},
		"place":   {NewPlaceEvent(2, "in_progress", 0, "K♠", 0, 3), "Black places K♠ at (0,3)"},
		"capture": {NewCaptureEvent(2, 0, []string{"2♥", "3♦"}), "Black captures 2♥, 3♦"},
		"draw":    {NewDrawEvent(2, "in_progress", 1, 2), "Red draws 2 card(s)"},
		"pass":    {NewPassEvent(5, 1), "Red has no legal move and passes"},
		"forfeit": {NewForfeitEvent(3, "in_progress", 1, "agent_timeout", errors.New("slow")), "Red forfeits (agent_timeout): slow"},
		"abort":   {NewAbortEvent(3, "in_progress", errors.New("stop")), "Match aborted: stop"},
		"win":     {NewWinEvent(9, 1, "board_full", [2]int{3, 7}), "Red wins 7-3 (board_full)"},
		"tie":     {NewTieEvent(9, "both_passed", [2]int{4, 4}), "Draw 4-4 (both_passed)"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.event.Details)
		})
	}
	require.Equal(t, "2♥ 3♦", NewCaptureEvent(2, 0, []string{"2♥", "3♦"}).Card)
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewTextLogger(&buf)
	l.Log(NewTurnEvent(3, 0))
	l.Log(NewPassEvent(3, 0))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "T3  in_progress"), lines[0])
	require.True(t, strings.HasSuffix(lines[1], "| Black has no legal move and passes"), lines[1])
	require.Len(t, l.Events(), 2)
	require.Equal(t, buf.String(), FormatAll(l.Events()))
}

func TestZapLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	l.Log(NewTurnEvent(1, 0))
	l.Log(NewPlaceEvent(1, "in_progress", 0, "5♣", 1, 1))
	l.Log(NewForfeitEvent(1, "in_progress", 0, "illegal_placement", errors.New("no")))

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	require.Equal(t, zapcore.DebugLevel, entries[0].Level)
	require.Equal(t, zapcore.InfoLevel, entries[1].Level)
	require.Equal(t, zapcore.WarnLevel, entries[2].Level)

	fields := entries[1].ContextMap()
	require.Equal(t, "5♣", fields["card"])
	require.Equal(t, "Black", fields["player"])
	require.Equal(t, "Place", fields["type"])
	require.EqualValues(t, 2, fields["seq"])
	require.Len(t, l.Events(), 3)
}
