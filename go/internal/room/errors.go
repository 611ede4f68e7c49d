package room

import (
	"errors"

	"github.com/mcdev12/scoreboard/go/internal/roomsync"
)

var (
	ErrInvalidRoomCode       = errors.New("enter a 4-digit room code")
	ErrConnectionUnavailable = errors.New("connection unavailable")
	ErrEmptyPassword         = errors.New("password is required")
	ErrWrongPassword         = errors.New("wrong scorer password")
	ErrRoomNotFound          = errors.New("room not found")
	ErrEmptyName             = errors.New("name is required")
	ErrUnknownPlayer         = errors.New("player not found")
	ErrUnknownMatch          = errors.New("match not found")
	ErrMatchNotPending       = errors.New("only pending matches can be scored")
	ErrCancelled             = errors.New("cancelled")
	ErrNotReady              = roomsync.ErrNotReady
)
