package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/gomori/internal/bot"
	"github.com/peterkuimelis/gomori/internal/game"
	"github.com/peterkuimelis/gomori/internal/protocol"
)

func newTestServer(t *testing.T, rules game.Rules) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(rules, zaptest.NewLogger(t))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func wsURL(ts *httptest.Server, nick string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?nick=" + nick
}

func TestRulesEndpoint(t *testing.T) {
	rules := game.DefaultRules()
	rules.Rows, rules.Cols = 5, 6
	_, ts := newTestServer(t, rules)

	resp, err := http.Get(ts.URL + "/api/rules")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var rv protocol.RulesView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rv))
	require.Equal(t, rules, protocol.DecodeRules(&rv))
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t, game.DefaultRules())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Status  string `json:"status"`
		Waiting int    `json:"waiting"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body.Status)
	require.Zero(t, body.Waiting)

	resp, err = http.Post(ts.URL+"/health", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMatchOverWebsocket(t *testing.T) {
	s, ts := newTestServer(t, game.DefaultRules())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	served := make(chan error, 2)
	join := func(nick string, b protocol.Bot) {
		conn, err := DialWebsocket(ctx, wsURL(ts, nick))
		if err != nil {
			served <- err
			return
		}
		defer conn.Close()
		served <- protocol.Serve(ctx, b, conn)
	}

	go join("alice", bot.NewGreedyBot(1))
	black, err := s.AcceptAgent(ctx, "black")
	require.NoError(t, err)
	require.Equal(t, "alice", black.Name())

	go join("bob", bot.NewRandomBot(2))
	red, err := s.AcceptAgent(ctx, "red")
	require.NoError(t, err)
	require.Equal(t, "bob", red.Name())

	first := game.Black
	m, err := game.NewMatch(game.MatchConfig{Seed: 3, FirstPlayer: &first}, black, red)
	require.NoError(t, err)
	res, err := m.Run(ctx)
	require.NoError(t, err)
	require.False(t, res.Forfeit, "%v", res.Err)
	require.Equal(t, game.DeckSize, m.State.CardsInPlay())

	black.Close()
	red.Close()
	require.NoError(t, <-served)
	require.NoError(t, <-served)
}

func TestAcceptAgentTimesOut(t *testing.T) {
	s, _ := newTestServer(t, game.DefaultRules())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.AcceptAgent(ctx, "nobody")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlowWebsocketBotTimesOut(t *testing.T) {
	s, ts := newTestServer(t, game.DefaultRules())
	ctx := context.Background()

	conn, err := DialWebsocket(ctx, wsURL(ts, "mute"))
	require.NoError(t, err)
	defer conn.Close()

	a, err := s.AcceptAgent(ctx, "mute")
	require.NoError(t, err)
	defer a.Close()

	tctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	err = a.NewGame(tctx, game.Red, game.DefaultRules())
	require.ErrorIs(t, err, game.ErrAgentTimeout)
}

func TestLobbyDropsDisconnectedBot(t *testing.T) {
	s, ts := newTestServer(t, game.DefaultRules())
	ctx := context.Background()

	conn, err := DialWebsocket(ctx, wsURL(ts, "flaky"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.waiting.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.waiting.Load() == 0 }, 2*time.Second, 5*time.Millisecond)

	actx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = s.AcceptAgent(actx, "black")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
