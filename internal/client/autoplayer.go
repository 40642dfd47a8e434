package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/protocol"
)

const DefaultStandOn = 17

// AutoPlayerConfig controls an AutoPlayer
type AutoPlayerConfig struct {
	Name    string // display name; empty lets the server choose
	RoomID  string // room to join; empty auto-matches
	Hands   int    // hands to play before returning; zero plays until ctx ends
	StandOn int    // stand once the hand scores at least this much

	// Create makes the player create RoomID with RoomConfig instead of
	// joining it
	Create     bool
	RoomConfig *protocol.RoomConfig
}

// Stats summarises the hands an AutoPlayer finished
type Stats struct {
	Hands   int
	Wins    int
	Losses  int
	Ties    int
	Results []protocol.Result
}

// AutoPlayer plays hands with a fixed stand threshold
type AutoPlayer struct {
	client *Client
	config AutoPlayerConfig
	logger *log.Logger
	seated chan struct{}
}

// NewAutoPlayer wraps a connected client
func NewAutoPlayer(client *Client, config AutoPlayerConfig, logger *log.Logger) *AutoPlayer {
	if config.StandOn <= 0 {
		config.StandOn = DefaultStandOn
	}
	return &AutoPlayer{
		client: client,
		config: config,
		logger: logger.WithPrefix("autoplay"),
		seated: make(chan struct{}),
	}
}

// Seated is closed once the player has a seat
func (a *AutoPlayer) Seated() <-chan struct{} {
	return a.seated
}

// Run takes a seat and plays until the configured number of hands is
// done, the context ends or the server drops the connection
func (a *AutoPlayer) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	if err := a.join(ctx); err != nil {
		return stats, err
	}
	a.logger.Info("Seated", "room", a.client.RoomID(), "name", a.client.PlayerName())
	close(a.seated)

	if err := a.client.StartGame(); err != nil {
		return stats, err
	}

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case msg, ok := <-a.client.Messages():
			if !ok {
				return stats, ErrDisconnected
			}
			done, err := a.handle(msg, &stats)
			if err != nil || done {
				return stats, err
			}
		}
	}
}

func (a *AutoPlayer) join(ctx context.Context) error {
	var err error
	switch {
	case a.config.Create:
		err = a.client.CreateRoom(a.config.RoomID, a.config.Name, a.config.RoomConfig)
	case a.config.RoomID != "":
		err = a.client.JoinRoom(a.config.RoomID, a.config.Name)
	default:
		err = a.client.JoinGame(a.config.Name)
	}
	if err != nil {
		return err
	}

	_, err = a.client.WaitFor(ctx, protocol.ActionJoinedGame, protocol.ActionRoomCreated, protocol.ActionRoomJoined)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	return nil
}

func (a *AutoPlayer) handle(msg *protocol.Message, stats *Stats) (bool, error) {
	me := a.client.PlayerID()

	switch msg.Action {
	case protocol.ActionPlayerTurn:
		if msg.PlayerID == me {
			for _, p := range msg.Players {
				if p.ID == me {
					return false, a.decide(p.Score)
				}
			}
		}

	case protocol.ActionPlayerHit:
		if msg.PlayerID == me && msg.Score != nil && *msg.Score <= 21 {
			return false, a.decide(*msg.Score)
		}

	case protocol.ActionGameOver:
		for _, r := range msg.Results {
			if r.PlayerID != me {
				continue
			}
			stats.Hands++
			stats.Results = append(stats.Results, r)
			switch r.Outcome {
			case game.PlayerWins.String():
				stats.Wins++
			case game.DealerWins.String():
				stats.Losses++
			default:
				stats.Ties++
			}
			a.logger.Info("Hand finished", "hand", stats.Hands, "result", r.Line)
		}
		if a.config.Hands > 0 && stats.Hands >= a.config.Hands {
			return true, nil
		}

	case protocol.ActionUpdateGameState:
		if msg.GamePhase == game.StateWaiting.String() {
			return false, a.client.StartGame()
		}

	case protocol.ActionError:
		var serverErr *ServerError
		err := AsError(msg)
		if errors.As(err, &serverErr) && ignorable(serverErr.Code) {
			a.logger.Debug("Ignoring rejection", "code", serverErr.Code)
			return false, nil
		}
		return false, err
	}

	return false, nil
}

func (a *AutoPlayer) decide(score int) error {
	if score < a.config.StandOn {
		a.logger.Debug("Hitting", "score", score)
		return a.client.Hit()
	}
	a.logger.Debug("Standing", "score", score)
	return a.client.Stand()
}

// ignorable reports rejections caused by other seats, such as a hand that
// someone else already started
func ignorable(code string) bool {
	switch code {
	case protocol.CodeGameInProgress, protocol.CodeNotYourTurn, protocol.CodeInsufficientPlayers:
		return true
	}
	return false
}
