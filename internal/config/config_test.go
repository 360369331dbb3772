package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/gomori/internal/game"
)

func TestParseKeepsDefaults(t *testing.T) {
	f, err := Parse([]byte(`
seed: 9
rules:
  rows: 5
  turn_timeout: 250ms
players:
  - {nick: a, kind: builtin, strategy: greedy}
  - {nick: b, kind: tcp, addr: ":7000"}
`))
	require.NoError(t, err)
	require.Equal(t, int64(9), f.Seed)
	require.Equal(t, 5, f.Rules.Rows)
	require.Equal(t, game.DefaultBoardSize, f.Rules.Cols)
	require.Equal(t, game.DefaultHandSize, f.Rules.HandSize)
	require.True(t, f.Rules.EdgeFlank)
	require.Equal(t, 250*time.Millisecond, f.Rules.TurnTimeout)
	require.Equal(t, "b", f.Players[1].Nick)
	require.Equal(t, "text", f.Log.Events)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"one player": `
players:
  - {nick: a, kind: builtin, strategy: greedy}
`,
		"no players":       `seed: 1`,
		"unknown kind":     players(`{nick: b, kind: carrier-pigeon}`),
		"cmd without argv": players(`{nick: b, kind: cmd}`),
		"lua no script":    players(`{nick: b, kind: lua}`),
		"ws no addr":       players(`{nick: b, kind: websocket}`),
		"missing nick":     players(`{kind: builtin, strategy: random}`),
		"bad rules": `
rules: {hand_size: 0}
` + players(`{nick: b, kind: builtin, strategy: random}`),
		"bad events": `
log: {events: loud}
` + players(`{nick: b, kind: builtin, strategy: random}`),
		"not yaml": "players: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

// players completes a two-player list with a valid first player.
func players(second string) string {
	return "players:\n  - {nick: a, kind: builtin, strategy: greedy}\n  - " + second + "\n"
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadExampleConfig(t *testing.T) {
	f, err := Load(filepath.Join("..", "..", "configs", "match.yaml"))
	require.NoError(t, err)
	require.Equal(t, KindLua, f.Players[0].Kind)
	require.Equal(t, KindCmd, f.Players[1].Kind)
	require.Equal(t, 5*time.Second, f.Rules.TurnTimeout)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
