package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/peterkuimelis/gomori/internal/game"
)

// Bot is a strategy as seen from the bot side of the protocol. Calls are
// strictly sequential.
type Bot interface {
	NewGame(color game.Color, rules game.Rules) error
	PlayFirstTurn(hand []game.Card) (game.Card, error)
	PlayTurn(view game.TurnView) (game.PlayTurnResponse, error)
}

// Serve answers judge requests with bot until "bye", EOF or ctx is done. A
// clean end of the match returns nil.
func Serve(ctx context.Context, bot Bot, conn Conn) error {
	rules := game.DefaultRules()
	for {
		data, err := conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("%w: request: %w", game.ErrProtocol, err)
		}

		var resp any
		switch req.Type {
		case TypeNewGame:
			color, err := game.ParseColor(req.Color)
			if err != nil {
				return fmt.Errorf("%w: %w", game.ErrProtocol, err)
			}
			rules = DecodeRules(req.Rules)
			if err := bot.NewGame(color, rules); err != nil {
				return fmt.Errorf("new_game: %w", err)
			}
			resp = NewGameResponse{}

		case TypePlayFirstTurn:
			hand, err := DecodeCards(req.Cards)
			if err != nil {
				return err
			}
			card, err := bot.PlayFirstTurn(hand)
			if err != nil {
				return fmt.Errorf("play_first_turn: %w", err)
			}
			resp = EncodeCard(card)

		case TypePlayTurn:
			view, err := decodeTurnView(req, rules)
			if err != nil {
				return err
			}
			moves, err := bot.PlayTurn(view)
			if err != nil {
				return fmt.Errorf("play_turn: %w", err)
			}
			resp = EncodeMoves(moves)

		case TypeBye:
			return nil

		default:
			return fmt.Errorf("%w: unknown request type %q", game.ErrProtocol, req.Type)
		}

		out, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("encode %s response: %w", req.Type, err)
		}
		if err := conn.Send(ctx, out); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
}

func decodeTurnView(req Request, rules game.Rules) (game.TurnView, error) {
	hand, err := DecodeCards(req.Cards)
	if err != nil {
		return game.TurnView{}, err
	}
	board, err := DecodeBoard(rules.Rows, rules.Cols, req.Fields)
	if err != nil {
		return game.TurnView{}, err
	}
	won, err := DecodeCards(req.CardsWonByOpponent)
	if err != nil {
		return game.TurnView{}, err
	}
	return game.TurnView{
		Turn:             req.Turn,
		Hand:             hand,
		Board:            board,
		OpponentCaptured: game.NewCardsSet(won...),
	}, nil
}

// Local runs a Bot in-process as a game.Agent.
func Local(bot Bot) game.Agent {
	return localAgent{bot}
}

type localAgent struct {
	bot Bot
}

func (l localAgent) NewGame(ctx context.Context, color game.Color, rules game.Rules) error {
	return l.bot.NewGame(color, rules)
}

func (l localAgent) PlayFirstTurn(ctx context.Context, hand []game.Card) (game.Card, error) {
	return l.bot.PlayFirstTurn(hand)
}

func (l localAgent) PlayTurn(ctx context.Context, view game.TurnView) (game.PlayTurnResponse, error) {
	return l.bot.PlayTurn(view)
}
