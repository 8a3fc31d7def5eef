package protocol

import (
	"fmt"

	"haven-chat/domain/event"
)

// EncodeEvent maps a domain event to its broadcast frame. The fanout worker
// calls this exactly once per event so every member receives identical bytes.
func EncodeEvent(e event.DomainEvent) ([]byte, error) {
	switch evt := e.(type) {
	case event.UserJoined:
		return EncodePresence(TypeJoin, evt.UserID, evt.Nickname, evt.At)
	case event.UserLeft:
		return EncodePresence(TypeLeave, evt.UserID, evt.Nickname, evt.At)
	case event.MessageBroadcast:
		return EncodeChat(evt.Message)
	default:
		return nil, fmt.Errorf("no wire encoding for event %T", e)
	}
}
