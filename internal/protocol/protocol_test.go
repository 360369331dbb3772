package protocol

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/gomori/internal/game"
)

// firstLegalBot plays the first legal cell of its first card.
type firstLegalBot struct {
	color game.Color
	views []game.TurnView
}

func (b *firstLegalBot) NewGame(color game.Color, rules game.Rules) error {
	b.color = color
	return nil
}

func (b *firstLegalBot) PlayFirstTurn(hand []game.Card) (game.Card, error) {
	return hand[0], nil
}

func (b *firstLegalBot) PlayTurn(view game.TurnView) (game.PlayTurnResponse, error) {
	b.views = append(b.views, view)
	for _, card := range view.Hand {
		for c := range view.Board.LegalCellsFor(card, b.color) {
			return game.PlayTurnResponse{{Card: card, I: c.I, J: c.J}}, nil
		}
	}
	return nil, nil
}

// fakeConn replays canned replies and records what was sent.
type fakeConn struct {
	replies []string
	sent    []Request
}

func (f *fakeConn) Send(ctx context.Context, msg []byte) error {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return err
	}
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeConn) Receive(ctx context.Context) ([]byte, error) {
	if len(f.replies) == 0 {
		return nil, io.EOF
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return []byte(r), nil
}

func (f *fakeConn) Close() error { return nil }

// pipeBot serves bot on one end of an in-memory pipe and returns an adapter
// on the other.
func pipeBot(t *testing.T, bot Bot) *Adapter {
	t.Helper()
	judgeSide, botSide := net.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- Serve(context.Background(), bot, NewStreamConn(botSide))
		botSide.Close()
	}()
	t.Cleanup(func() {
		judgeSide.Close()
		<-done
	})
	return NewAdapter(NewStreamConn(judgeSide), "pipe", zaptest.NewLogger(t))
}

func TestMatchOverPipes(t *testing.T) {
	blackBot, redBot := &firstLegalBot{}, &firstLegalBot{}
	black, red := pipeBot(t, blackBot), pipeBot(t, redBot)

	m, err := game.NewMatch(game.MatchConfig{Seed: 3}, black, red)
	require.NoError(t, err)
	res, err := m.Run(context.Background())
	require.NoError(t, err)

	require.False(t, res.Forfeit, "%v", res.Err)
	require.Equal(t, game.DeckSize, m.State.CardsInPlay())
	require.Equal(t, game.Black, blackBot.color)
	require.Equal(t, game.Red, redBot.color)
	require.NotEmpty(t, redBot.views)
	require.Equal(t, 4, redBot.views[0].Board.Rows())
}

func TestAdapterNewGame(t *testing.T) {
	conn := &fakeConn{replies: []string{`{}`}}
	a := NewAdapter(conn, "fake", nil)
	require.NoError(t, a.NewGame(context.Background(), game.Red, game.DefaultRules()))
	require.Equal(t, TypeNewGame, conn.sent[0].Type)
	require.Equal(t, "red", conn.sent[0].Color)
	require.Equal(t, 4, conn.sent[0].Rules.Rows)

	for _, ack := range []string{`[]`, `null`, `"ok"`, `{"ready":true}`} {
		conn := &fakeConn{replies: []string{ack}}
		err := NewAdapter(conn, "fake", nil).NewGame(context.Background(), game.Red, game.DefaultRules())
		require.NoError(t, err, ack)
	}

	conn = &fakeConn{replies: []string{`ready`}}
	err := NewAdapter(conn, "fake", nil).NewGame(context.Background(), game.Red, game.DefaultRules())
	require.ErrorIs(t, err, game.ErrProtocol)
}

func TestAdapterFirstTurnDecoding(t *testing.T) {
	conn := &fakeConn{replies: []string{`{"suit":"♥","rank":"10"}`}}
	card, err := NewAdapter(conn, "fake", nil).PlayFirstTurn(context.Background(), []game.Card{game.MustCard("T♥")})
	require.NoError(t, err)
	require.Equal(t, game.MustCard("T♥"), card)
	require.Equal(t, []CardJSON{{Suit: "♥", Rank: "10"}}, conn.sent[0].Cards)

	for _, bad := range []string{
		`null`,
		`{"suit":"X","rank":"2"}`,
		`{"suit":"♥","rank":"1"}`,
		`{"suit":"♥"}`,
		`"T♥"`,
		`not json`,
	} {
		conn := &fakeConn{replies: []string{bad}}
		_, err := NewAdapter(conn, "fake", nil).PlayFirstTurn(context.Background(), nil)
		require.ErrorIs(t, err, game.ErrProtocol, bad)
		require.Equal(t, game.ReasonProtocolError, game.ReasonFor(err))
	}
}

func TestAdapterPlayTurn(t *testing.T) {
	conn := &fakeConn{replies: []string{`{}`, `[{"card":{"suit":"♦","rank":"7"},"i":1,"j":2}]`}}
	a := NewAdapter(conn, "fake", nil)
	require.NoError(t, a.NewGame(context.Background(), game.Red, game.DefaultRules()))

	board := game.NewBoard(4, 4)
	require.NoError(t, board.Place(game.MustCard("2♠"), game.Black, 1, 1))
	view := game.TurnView{
		Turn:             1,
		Hand:             []game.Card{game.MustCard("7♦")},
		Board:            board,
		OpponentCaptured: game.NewCardsSet(game.MustCard("3♥")),
	}
	resp, err := a.PlayTurn(context.Background(), view)
	require.NoError(t, err)
	require.Equal(t, game.PlayTurnResponse{{Card: game.MustCard("7♦"), I: 1, J: 2}}, resp)

	req := conn.sent[1]
	require.Equal(t, TypePlayTurn, req.Type)
	require.Equal(t, []Field{{I: 1, J: 1, Card: CardJSON{Suit: "♠", Rank: "2"}, Owner: "black"}}, req.Fields)
	require.Equal(t, []CardJSON{{Suit: "♥", Rank: "3"}}, req.CardsWonByOpponent)
}

func TestAdapterPlayTurnProtocolErrors(t *testing.T) {
	tests := map[string]string{
		"outside grid":   `[{"card":{"suit":"♦","rank":"7"},"i":4,"j":0}]`,
		"negative":       `[{"card":{"suit":"♦","rank":"7"},"i":0,"j":-1}]`,
		"missing j":      `[{"card":{"suit":"♦","rank":"7"},"i":0}]`,
		"null card":      `[{"card":null,"i":0,"j":0}]`,
		"null list":      `null`,
		"object":         `{"card":{"suit":"♦","rank":"7"},"i":0,"j":0}`,
		"string i":       `[{"card":{"suit":"♦","rank":"7"},"i":"0","j":0}]`,
		"bad rank label": `[{"card":{"suit":"♦","rank":"11"},"i":0,"j":0}]`,
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			conn := &fakeConn{replies: []string{reply}}
			a := NewAdapter(conn, "fake", nil)
			_, err := a.PlayTurn(context.Background(), game.TurnView{Board: game.NewBoard(4, 4)})
			require.ErrorIs(t, err, game.ErrProtocol)
		})
	}

	// An empty list is a well-formed pass.
	conn := &fakeConn{replies: []string{`[]`}}
	resp, err := NewAdapter(conn, "fake", nil).PlayTurn(context.Background(), game.TurnView{Board: game.NewBoard(4, 4)})
	require.NoError(t, err)
	require.Empty(t, resp)
}

func TestAdapterTimeout(t *testing.T) {
	judgeSide, botSide := net.Pipe()
	defer judgeSide.Close()
	defer botSide.Close()
	// The bot reads requests and never answers.
	go func() {
		_, _ = io.Copy(io.Discard, botSide)
	}()

	a := NewAdapter(NewStreamConn(judgeSide), "silent", zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := a.PlayFirstTurn(ctx, []game.Card{game.MustCard("2♠")})
	require.ErrorIs(t, err, game.ErrAgentTimeout)
}

func TestAdapterConnectionClosed(t *testing.T) {
	a := NewAdapter(&fakeConn{}, "gone", nil)
	_, err := a.PlayFirstTurn(context.Background(), nil)
	require.ErrorIs(t, err, game.ErrAgentFailed)
	require.Equal(t, game.ReasonAgentFailed, game.ReasonFor(err))
}

func TestServeStopsOnBye(t *testing.T) {
	conn := &scriptConn{in: []string{
		`{"type":"new_game","color":"black"}`,
		`{"type":"play_first_turn","cards":[{"suit":"♠","rank":"A"}]}`,
		`{"type":"bye","winner":"red","reason":"board_full"}`,
		`{"type":"play_first_turn","cards":[{"suit":"♠","rank":"K"}]}`,
	}}
	bot := &firstLegalBot{}
	require.NoError(t, Serve(context.Background(), bot, conn))
	require.Equal(t, []string{`{}`, `{"suit":"♠","rank":"A"}`}, conn.out)
	require.Equal(t, game.Black, bot.color)
}

func TestServeRejectsUnknownRequest(t *testing.T) {
	conn := &scriptConn{in: []string{`{"type":"dance"}`}}
	require.ErrorIs(t, Serve(context.Background(), &firstLegalBot{}, conn), game.ErrProtocol)
}

func TestServeUsesRulesForBoard(t *testing.T) {
	conn := &scriptConn{in: []string{
		`{"type":"new_game","color":"red","rules":{"rows":1,"cols":3,"hand_size":1,"max_cards_per_turn":1}}`,
		`{"type":"play_turn","cards":[{"suit":"♥","rank":"2"}],"fields":[{"i":0,"j":1,"card":{"suit":"♠","rank":"2"},"owner":"black"}]}`,
	}}
	bot := &firstLegalBot{}
	require.NoError(t, Serve(context.Background(), bot, conn))
	require.Len(t, bot.views, 1)
	require.Equal(t, 3, bot.views[0].Board.Cols())
	require.Equal(t, `[{"card":{"suit":"♥","rank":"2"},"i":0,"j":0}]`, conn.out[1])
}

// scriptConn feeds fixed requests to Serve and records its answers.
type scriptConn struct {
	in  []string
	out []string
}

func (s *scriptConn) Send(ctx context.Context, msg []byte) error {
	s.out = append(s.out, string(msg))
	return nil
}

func (s *scriptConn) Receive(ctx context.Context) ([]byte, error) {
	if len(s.in) == 0 {
		return nil, io.EOF
	}
	msg := s.in[0]
	s.in = s.in[1:]
	return []byte(msg), nil
}

func (s *scriptConn) Close() error { return nil }

func TestStreamConnFraming(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go func() {
		_, _ = a.Write([]byte("\n{\"type\":\"bye\"}\n  \n[1,2]\n"))
	}()
	conn := NewStreamConn(b)
	msg, err := conn.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, `{"type":"bye"}`, string(msg))
	msg, err = conn.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, `[1,2]`, string(msg))
}

func TestStreamConnOversizedMessage(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go func() {
		line := make([]byte, MaxMessageSize+10)
		for i := range line {
			line[i] = 'x'
		}
		_, _ = a.Write(append(line, '\n'))
	}()
	_, err := NewStreamConn(b).Receive(context.Background())
	require.ErrorIs(t, err, game.ErrProtocol)

	err = NewAdapter(&fakeConn{}, "big", nil).transportErr(context.Background(), err)
	require.ErrorIs(t, err, game.ErrProtocol)
	require.Equal(t, game.ReasonProtocolError, game.ReasonFor(err))
}

func TestCardCodec(t *testing.T) {
	for _, c := range game.FullDeck() {
		back, err := DecodeCard(EncodeCard(c))
		require.NoError(t, err)
		require.Equal(t, c, back)
	}
	require.Equal(t, CardJSON{Suit: "♣", Rank: "Q"}, EncodeCard(game.MustCard("Q♣")))
}
