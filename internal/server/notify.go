package server

import (
	"fmt"

	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/protocol"
)

// messageFor converts a room notification to its wire message. The same
// message is shared by every recipient and must not be modified.
func messageFor(n game.Notification) (*protocol.Message, bool) {
	var msg protocol.Message

	switch e := n.Event.(type) {
	case game.JoinedEvent:
		msg = protocol.StateMessage(joinAction(e.Kind), e.Snapshot)
		msg.PlayerID = e.PlayerID
		msg.RoomConfig = protocol.NewRoomConfig(e.Snapshot.Config)
		if p, ok := e.Snapshot.Player(e.PlayerID); ok {
			msg.PlayerName = p.Name
		}
		msg.Message = fmt.Sprintf("Joined room %s", e.Snapshot.RoomID)

	case game.LeftEvent:
		msg = protocol.Message{
			Action:   protocol.ActionRoomLeft,
			RoomID:   n.RoomID,
			PlayerID: e.PlayerID,
		}

	case game.PlayerJoinedEvent:
		player := protocol.NewPlayer(e.Player)
		msg = protocol.StateMessage(protocol.ActionPlayerJoined, e.Snapshot)
		msg.PlayerID = e.Player.ID
		msg.PlayerName = e.Player.Name
		msg.Player = &player
		msg.Message = fmt.Sprintf("%s joined the room", e.Player.Name)

	case game.PlayerLeftEvent:
		action := protocol.ActionPlayerLeft
		if e.Disconnected {
			action = protocol.ActionPlayerDisconnected
		}
		msg = protocol.StateMessage(action, e.Snapshot)
		msg.PlayerID = e.PlayerID
		msg.PlayerName = e.Name
		msg.Message = fmt.Sprintf("%s left the room", e.Name)

	case game.ReadyToStartEvent:
		msg = protocol.Message{
			Action:       protocol.ActionReadyToStart,
			RoomID:       n.RoomID,
			TotalPlayers: e.TotalPlayers,
			Message:      fmt.Sprintf("%d players seated, ready to start", e.TotalPlayers),
		}

	case game.PlayerReadyEvent:
		msg = protocol.StateMessage(protocol.ActionPlayerReadyStatus, e.Snapshot)
		msg.PlayerID = e.PlayerID
		msg.PlayerName = e.Name
		msg.IsReady = protocol.BoolPtr(e.IsReady)

	case game.CountdownStartedEvent:
		msg = countdownMessage(protocol.ActionCountdownStarted, n.RoomID, e.Seconds)

	case game.CountdownUpdateEvent:
		msg = countdownMessage(protocol.ActionCountdownUpdate, n.RoomID, e.Seconds)

	case game.CountdownCancelledEvent:
		msg = protocol.StateMessage(protocol.ActionCountdownCancelled, e.Snapshot)
		msg.Message = "Not enough players, countdown cancelled"

	case game.GameStartedEvent:
		msg = protocol.StateMessage(protocol.ActionGameStarted, e.Snapshot)

	case game.PlayerTurnEvent:
		msg = protocol.StateMessage(protocol.ActionPlayerTurn, e.Snapshot)
		msg.PlayerID = e.PlayerID
		msg.PlayerName = e.Name

	case game.TurnTimerStartedEvent:
		msg = protocol.Message{
			Action:   protocol.ActionPlayerTimeoutStarted,
			RoomID:   n.RoomID,
			PlayerID: e.PlayerID,
			Seconds:  protocol.IntPtr(e.Seconds),
		}

	case game.PlayerHitEvent:
		card := protocol.NewCard(e.Card)
		msg = protocol.StateMessage(protocol.ActionPlayerHit, e.Snapshot)
		msg.PlayerID = e.PlayerID
		msg.Card = &card
		msg.Score = protocol.IntPtr(e.Score)

	case game.PlayerStandEvent:
		msg = protocol.StateMessage(protocol.ActionPlayerStand, e.Snapshot)
		msg.PlayerID = e.PlayerID
		msg.Score = protocol.IntPtr(e.Score)

	case game.PlayerBustEvent:
		card := protocol.NewCard(e.Card)
		msg = protocol.StateMessage(protocol.ActionPlayerBust, e.Snapshot)
		msg.PlayerID = e.PlayerID
		msg.Card = &card
		msg.Score = protocol.IntPtr(e.Score)

	case game.PlayerTimeoutEvent:
		msg = protocol.StateMessage(protocol.ActionPlayerTimeout, e.Snapshot)
		msg.PlayerID = e.PlayerID
		msg.PlayerName = e.Name
		msg.Message = fmt.Sprintf("%s ran out of time and stands", e.Name)

	case game.DealerTurnEvent:
		msg = protocol.StateMessage(protocol.ActionDealerTurn, e.Snapshot)
		msg.DealerScore = protocol.IntPtr(e.Snapshot.Dealer.Score)

	case game.DealerHitEvent:
		card := protocol.NewCard(e.Card)
		msg = protocol.StateMessage(protocol.ActionDealerHit, e.Snapshot)
		msg.Card = &card
		msg.DealerScore = protocol.IntPtr(e.Score)

	case game.DealerBustEvent:
		msg = protocol.StateMessage(protocol.ActionDealerBust, e.Snapshot)
		msg.DealerScore = protocol.IntPtr(e.Score)

	case game.DealerStandEvent:
		msg = protocol.StateMessage(protocol.ActionDealerStand, e.Snapshot)
		msg.DealerScore = protocol.IntPtr(e.Score)

	case game.GameOverEvent:
		results := make([]protocol.Result, len(e.Results))
		for i, r := range e.Results {
			results[i] = protocol.NewResult(r)
		}
		msg = protocol.StateMessage(protocol.ActionGameOver, e.Snapshot)
		msg.Results = results
		msg.Result = protocol.ResultLines(results)
		msg.DealerScore = protocol.IntPtr(e.Snapshot.Dealer.Score)

	case game.StateUpdatedEvent:
		msg = protocol.StateMessage(protocol.ActionUpdateGameState, e.Snapshot)

	case game.PlayerRenamedEvent:
		msg = protocol.StateMessage(protocol.ActionPlayerNameUpdated, e.Snapshot)
		msg.PlayerID = e.PlayerID
		msg.OldName = e.OldName
		msg.NewName = e.NewName

	default:
		return nil, false
	}

	return &msg, true
}

func joinAction(kind game.JoinKind) string {
	switch kind {
	case game.JoinCreated:
		return protocol.ActionRoomCreated
	case game.JoinDirect:
		return protocol.ActionRoomJoined
	default:
		return protocol.ActionJoinedGame
	}
}

func countdownMessage(action, roomID string, seconds int) protocol.Message {
	text := fmt.Sprintf("Game starts in %d seconds", seconds)
	if seconds <= 0 {
		text = "Game starting"
	}
	return protocol.Message{
		Action:  action,
		RoomID:  roomID,
		Seconds: protocol.IntPtr(seconds),
		Message: text,
	}
}
