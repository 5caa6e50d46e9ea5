package chat

import "errors"

var (
	ErrNotAuthenticated     = errors.New("connection is not authenticated")
	ErrAlreadyAuthenticated = errors.New("connection is already authenticated")
	ErrUnknownUser          = errors.New("unknown user")
	ErrRoomNotFound         = errors.New("room not found")
	ErrNotAMember           = errors.New("not a member of this room")
	ErrEmptyContent         = errors.New("empty message content")
)
