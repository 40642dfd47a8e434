package game

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomExists          = errors.New("room already exists")
	ErrRoomFull            = errors.New("room is full")
	ErrAlreadyJoined       = errors.New("player already joined")
	ErrGameInProgress      = errors.New("game in progress")
	ErrNotPlaying          = errors.New("no hand in progress")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrAlreadyActed        = errors.New("player already stood or bust this hand")
	ErrInsufficientPlayers = errors.New("not enough players to start")
	ErrInvalidName         = errors.New("invalid player name")
	ErrPlayerNotFound      = errors.New("player not in room")
	ErrInvalidConfig       = errors.New("invalid room config")
)
