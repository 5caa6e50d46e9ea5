package handlers

import (
	"context"
	"errors"
	"log"

	"chat-relay/internal/chat"
	"chat-relay/internal/models"
	"chat-relay/internal/services"
	"chat-relay/internal/utils"
)

// dispatch validates one client event and routes it into the chat core.
func dispatch(core *chat.Core, connID string, sender chat.Sender, raw []byte) {
	var ev models.ClientEvent
	if err := utils.SafeJSONParse(raw, &ev); err != nil {
		utils.LogError(err, "JSON Parse")
		sendError(sender, "malformed event")
		return
	}

	ctx := context.Background()

	switch ev.Event {
	case models.EventAuthenticate:
		handleAuthenticate(ctx, core, connID, sender, ev.Token)
	case models.EventJoin:
		handleJoin(ctx, core, connID, sender, ev.Room)
	case models.EventLeave:
		core.Leave(connID, ev.Room)
	case models.EventChat:
		handleChat(ctx, core, connID, sender, ev.Room, ev.Text)
	case models.EventTyping:
		if err := core.SetTyping(connID, ev.Room, ev.IsTyping); err != nil {
			sendCoreError(sender, err)
		}
	default:
		log.Printf("Unknown event: %s", ev.Event)
	}
}

func handleAuthenticate(ctx context.Context, core *chat.Core, connID string, sender chat.Sender, token string) {
	claims, err := services.ValidateToken(token)
	if err != nil {
		sendError(sender, "invalid token")
		return
	}
	uid, ok := claims["user_id"].(float64)
	if !ok {
		sendError(sender, "invalid token claims")
		return
	}

	user, err := core.Authenticate(ctx, connID, int(uid))
	if err != nil {
		sendCoreError(sender, err)
		return
	}

	utils.LogError(sender.Send(models.AuthenticatedEvent{
		Event: models.EventAuthenticated,
		User:  user,
	}), "authenticated ack")
}

func handleJoin(ctx context.Context, core *chat.Core, connID string, sender chat.Sender, roomID string) {
	res, err := core.Join(ctx, connID, roomID)
	if err != nil {
		sendCoreError(sender, err)
		return
	}

	utils.LogError(sender.Send(models.HistoryEvent{
		Event:    models.EventHistory,
		Room:     roomID,
		Messages: res.History,
	}), "history")
	utils.LogError(sender.Send(models.RoomMembersEvent{
		Event:   models.EventRoomMembers,
		Room:    roomID,
		Members: res.Members,
	}), "room members")
}

func handleChat(ctx context.Context, core *chat.Core, connID string, sender chat.Sender, roomID, text string) {
	_, err := core.Publish(ctx, connID, roomID, text)
	if errors.Is(err, chat.ErrEmptyContent) {
		// Accidental whitespace sends are dropped, not reported.
		return
	}
	if err != nil {
		sendCoreError(sender, err)
	}
}

func sendError(sender chat.Sender, message string) {
	utils.LogError(sender.Send(models.ErrorEvent{
		Event:   models.EventError,
		Message: message,
	}), "error event")
}

// sendCoreError maps engine errors onto the error wire event. Anything
// outside the engine's own taxonomy (a store failure, usually) surfaces
// generically.
func sendCoreError(sender chat.Sender, err error) {
	switch {
	case errors.Is(err, chat.ErrNotAuthenticated),
		errors.Is(err, chat.ErrAlreadyAuthenticated),
		errors.Is(err, chat.ErrUnknownUser),
		errors.Is(err, chat.ErrRoomNotFound),
		errors.Is(err, chat.ErrNotAMember):
		sendError(sender, err.Error())
	default:
		utils.LogError(err, "chat core")
		sendError(sender, "internal error")
	}
}
