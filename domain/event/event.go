package event

import (
	"time"

	"haven-chat/domain/chat"
)

type DomainEvent interface {
	RoomID() chat.RoomID
}

type UserJoined struct {
	Room     chat.RoomID
	UserID   string
	Nickname string
	At       time.Time
}

func (e UserJoined) RoomID() chat.RoomID {
	return e.Room
}

type UserLeft struct {
	Room     chat.RoomID
	UserID   string
	Nickname string
	At       time.Time
}

func (e UserLeft) RoomID() chat.RoomID {
	return e.Room
}

// MessageBroadcast is emitted only after the message has been persisted.
type MessageBroadcast struct {
	Message chat.Message
}

func (e MessageBroadcast) RoomID() chat.RoomID {
	return e.Message.Room
}

// Handler reacts to events drained by the telemetry worker.
type Handler interface {
	Handle(e DomainEvent)
}
