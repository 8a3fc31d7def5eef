package sink

import (
	"context"
	"sync"

	"haven-chat/domain/chat"
	"haven-chat/domain/event"
)

// Timeline holds a simple local timeline of broadcast messages. Mostly
// useful in tests and diagnostics as an in-memory witness of the fanout.
type Timeline struct {
	mu       sync.Mutex
	messages []chat.Message
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	if evt, ok := e.(event.MessageBroadcast); ok {
		t.mu.Lock()
		t.messages = append(t.messages, evt.Message)
		t.mu.Unlock()
	}
	return nil
}

func (t *Timeline) Messages() []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]chat.Message(nil), t.messages...)
}
