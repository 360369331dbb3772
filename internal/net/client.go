package net

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/peterkuimelis/gomori/internal/game"
	"github.com/peterkuimelis/gomori/internal/protocol"
)

// Dial connects a bot to a judge listening on addr.
func Dial(ctx context.Context, addr string) (*protocol.StreamConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return protocol.NewStreamConn(conn), nil
}

var (
	redInk   = color.New(color.FgRed, color.Bold)
	blackInk = color.New(color.FgHiWhite, color.Bold)
	dimInk   = color.New(color.Faint)
)

// TerminalBot lets a person play through a terminal. It implements
// protocol.Bot, so it can sit behind any transport.
type TerminalBot struct {
	in    *bufio.Reader
	out   io.Writer
	color game.Color
	rules game.Rules
}

func NewTerminalBot(in io.Reader, out io.Writer) *TerminalBot {
	return &TerminalBot{in: bufio.NewReader(in), out: out, rules: game.DefaultRules()}
}

func (tb *TerminalBot) NewGame(c game.Color, rules game.Rules) error {
	tb.color = c
	tb.rules = rules
	fmt.Fprintln(tb.out)
	fmt.Fprintln(tb.out, "═══════════════════════════════════")
	fmt.Fprintf(tb.out, "  NEW GAME: you play %s on %dx%d\n", strings.ToUpper(c.String()), rules.Rows, rules.Cols)
	fmt.Fprintln(tb.out, "═══════════════════════════════════")
	return nil
}

func (tb *TerminalBot) PlayFirstTurn(hand []game.Card) (game.Card, error) {
	fmt.Fprintln(tb.out, "\nYou open the game.")
	tb.renderHand(hand)
	idx, err := tb.readChoice(len(hand))
	if err != nil {
		return game.Card{}, err
	}
	return hand[idx], nil
}

func (tb *TerminalBot) PlayTurn(view game.TurnView) (game.PlayTurnResponse, error) {
	tb.renderBoard(view)
	tb.renderHand(view.Hand)
	fmt.Fprintf(tb.out, "Enter up to %d moves as \"<card> <i> <j>\" separated by commas, or \"pass\".\n", tb.rules.MaxCardsPerTurn)
	for {
		line, err := tb.readLine()
		if err != nil {
			return nil, err
		}
		resp, err := ParseMoves(line, view.Hand)
		if err != nil {
			fmt.Fprintln(tb.out, err)
			continue
		}
		return resp, nil
	}
}

func (tb *TerminalBot) renderBoard(view game.TurnView) {
	b := view.Board
	fmt.Fprintln(tb.out)
	fmt.Fprintf(tb.out, "Turn %d | opponent has won %d card(s)\n", view.Turn, view.OpponentCaptured.Len())
	fmt.Fprint(tb.out, "    ")
	for j := 0; j < b.Cols(); j++ {
		fmt.Fprintf(tb.out, " %-3d", j)
	}
	fmt.Fprintln(tb.out)
	for i := 0; i < b.Rows(); i++ {
		fmt.Fprintf(tb.out, " %-2d ", i)
		for j := 0; j < b.Cols(); j++ {
			cell, _ := b.CellAt(i, j)
			switch {
			case !cell.Occupied:
				dimInk.Fprint(tb.out, "[  ]")
			case cell.Owner == game.Red:
				redInk.Fprintf(tb.out, "[%s]", cell.Card)
			default:
				blackInk.Fprintf(tb.out, "[%s]", cell.Card)
			}
		}
		fmt.Fprintln(tb.out)
	}
}

func (tb *TerminalBot) renderHand(hand []game.Card) {
	fmt.Fprint(tb.out, "Hand: ")
	for i, c := range hand {
		fmt.Fprintf(tb.out, "[%d] %s  ", i+1, c)
	}
	fmt.Fprintln(tb.out)
}

func (tb *TerminalBot) readLine() (string, error) {
	fmt.Fprint(tb.out, "> ")
	line, err := tb.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (tb *TerminalBot) readChoice(count int) (int, error) {
	for {
		line, err := tb.readLine()
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > count {
			fmt.Fprintf(tb.out, "Enter a number between 1 and %d\n", count)
			continue
		}
		return n - 1, nil // convert to 0-indexed
	}
}

// ParseMoves reads "<card> <i> <j>[, ...]" where card is a hand index
// (1-based) or a card code such as T♥. "pass" and an empty line mean no
// moves.
func ParseMoves(line string, hand []game.Card) (game.PlayTurnResponse, error) {
	if strings.EqualFold(line, "pass") || line == "" {
		return game.PlayTurnResponse{}, nil
	}
	var resp game.PlayTurnResponse
	for _, part := range strings.Split(line, ",") {
		fields := strings.Fields(part)
		if len(fields) != 3 {
			return nil, fmt.Errorf("expected \"<card> <i> <j>\", got %q", strings.TrimSpace(part))
		}
		card, err := HandCard(fields[0], hand)
		if err != nil {
			return nil, err
		}
		i, errI := strconv.Atoi(fields[1])
		j, errJ := strconv.Atoi(fields[2])
		if errI != nil || errJ != nil {
			return nil, fmt.Errorf("coordinates must be numbers, got %q %q", fields[1], fields[2])
		}
		resp = append(resp, game.Move{Card: card, I: i, J: j})
	}
	return resp, nil
}

// HandCard resolves a 1-based hand index or a card code.
func HandCard(s string, hand []game.Card) (game.Card, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > len(hand) {
			return game.Card{}, fmt.Errorf("card index must be between 1 and %d", len(hand))
		}
		return hand[n-1], nil
	}
	return game.ParseCard(s)
}
