package net

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/gomori/internal/bot"
	"github.com/peterkuimelis/gomori/internal/game"
	"github.com/peterkuimelis/gomori/internal/protocol"
)

const helperEnv = "GOMORI_NET_HELPER"

// TestMain doubles as a bot binary: with helperEnv set the test executable
// serves a built-in strategy over stdio instead of running tests.
func TestMain(m *testing.M) {
	switch os.Getenv(helperEnv) {
	case "":
		os.Exit(m.Run())
	case "serve":
		err := protocol.Serve(context.Background(), &bot.IndexBot{Index: 0}, Stdio())
		if err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			os.Exit(1)
		}
		os.Exit(0)
	default:
		os.Stderr.WriteString("crashing on purpose\n")
		os.Exit(3)
	}
}

func runMatch(t *testing.T, black, red game.Agent) (*game.Match, game.Result) {
	t.Helper()
	first := game.Black
	m, err := game.NewMatch(game.MatchConfig{Seed: 7, FirstPlayer: &first}, black, red)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := m.Run(ctx)
	require.NoError(t, err)
	return m, res
}

func TestMatchOverTCP(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ln, err := Listen("127.0.0.1:0", logger)
	require.NoError(t, err)
	defer ln.Close()

	ctx := context.Background()
	served := make(chan error, 2)
	connect := func(b protocol.Bot) {
		conn, err := Dial(ctx, ln.Addr().String())
		if err != nil {
			served <- err
			return
		}
		defer conn.Close()
		served <- protocol.Serve(ctx, b, conn)
	}

	go connect(bot.NewRandomBot(1))
	black, err := ln.AcceptAgent(ctx, "black-bot")
	require.NoError(t, err)
	defer black.Close()

	go connect(bot.NewGreedyBot(2))
	red, err := ln.AcceptAgent(ctx, "red-bot")
	require.NoError(t, err)
	defer red.Close()

	m, res := runMatch(t, black, red)
	require.False(t, res.Forfeit, "%v", res.Err)
	require.Equal(t, game.DeckSize, m.State.CardsInPlay())

	// Both bots see "bye" and stop cleanly.
	require.NoError(t, <-served)
	require.NoError(t, <-served)
}

func TestAcceptAgentHonoursContext(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = ln.AcceptAgent(ctx, "nobody")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMatchAgainstProcess(t *testing.T) {
	t.Setenv(helperEnv, "serve")
	ctx := context.Background()
	proc, err := StartProcess(ctx, os.Args[0], []string{"-test.run=^$"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	agent := proc.Agent("child")
	defer agent.Close()

	m, res := runMatch(t, agent, protocol.Local(bot.NewGreedyBot(4)))
	require.False(t, res.Forfeit, "%v", res.Err)
	require.Equal(t, game.DeckSize, m.State.CardsInPlay())
}

func TestCrashingProcessForfeits(t *testing.T) {
	t.Setenv(helperEnv, "crash")
	proc, err := StartProcess(context.Background(), os.Args[0], nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	agent := proc.Agent("child")
	defer agent.Close()

	_, res := runMatch(t, agent, protocol.Local(bot.NewRandomBot(4)))
	require.True(t, res.Forfeit)
	require.Equal(t, game.Black, res.Offender)
	require.Equal(t, game.Red, res.Winner)
	require.ErrorIs(t, res.Err, game.ErrAgentFailed)
}

func TestParseMoves(t *testing.T) {
	hand := []game.Card{game.MustCard("2♥"), game.MustCard("T♥"), game.MustCard("K♥")}

	tests := map[string]struct {
		line    string
		want    game.PlayTurnResponse
		wantErr bool
	}{
		"pass":          {line: "pass", want: game.PlayTurnResponse{}},
		"empty":         {line: "", want: game.PlayTurnResponse{}},
		"index":         {line: "2 0 1", want: game.PlayTurnResponse{{Card: hand[1], I: 0, J: 1}}},
		"code":          {line: "K♥ 3 3", want: game.PlayTurnResponse{{Card: hand[2], I: 3, J: 3}}},
		"two moves":     {line: "1 0 0, 3 1 1", want: game.PlayTurnResponse{{Card: hand[0]}, {Card: hand[2], I: 1, J: 1}}},
		"short":         {line: "1 0", wantErr: true},
		"bad index":     {line: "4 0 0", wantErr: true},
		"bad coord":     {line: "1 a 0", wantErr: true},
		"bad card code": {line: "Z♥ 0 0", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseMoves(tc.line, hand)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestTerminalBot(t *testing.T) {
	in := strings.NewReader("zero\n2\n9 0 0\nK♥ 0 0\n")
	var out bytes.Buffer
	tb := NewTerminalBot(in, &out)

	require.NoError(t, tb.NewGame(game.Red, game.DefaultRules()))
	require.Contains(t, out.String(), "you play RED on 4x4")

	c, err := tb.PlayFirstTurn([]game.Card{game.MustCard("2♥"), game.MustCard("3♥")})
	require.NoError(t, err)
	require.Equal(t, game.MustCard("3♥"), c)
	require.Contains(t, out.String(), "Enter a number between 1 and 2")

	board := game.NewBoard(4, 4)
	require.NoError(t, board.Place(game.MustCard("5♠"), game.Black, 1, 1))
	resp, err := tb.PlayTurn(game.TurnView{Turn: 2, Hand: []game.Card{game.MustCard("K♥")}, Board: board})
	require.NoError(t, err)
	require.Equal(t, game.PlayTurnResponse{{Card: game.MustCard("K♥"), I: 0, J: 0}}, resp)
	require.Contains(t, out.String(), "5♠")
	require.Contains(t, out.String(), "card index must be between 1 and 1")

	_, err = tb.PlayTurn(game.TurnView{Turn: 4, Hand: []game.Card{game.MustCard("K♥")}, Board: board})
	require.Error(t, err, "input exhausted")
}
