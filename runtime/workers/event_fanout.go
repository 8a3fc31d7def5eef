package workers

import (
	"context"
	"log/slog"

	"haven-chat/contract"
	"haven-chat/domain/event"
	"haven-chat/protocol"
)

// EventFanout broadcasts domain events to the live members of their room
// and to the permanent sinks (search index, telemetry projections).
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering across members, durability, or retries. A member whose transport
// is closed or whose queue is full is silently skipped; a missed broadcast
// is never queued or redelivered. Per-member receipt order matches call
// order because a single goroutine drains the event queue.
type EventFanout struct {
	log       *slog.Logger
	registry  contract.IRegistry
	events    chan event.DomainEvent
	telemetry chan event.DomainEvent
	sinks     []contract.EventSink
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	events, telemetry chan event.DomainEvent) *EventFanout {
	return &EventFanout{log: log, registry: registry, events: events, telemetry: telemetry}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt := <-w.events:
			w.Fanout(ctx, evt)
			select {
			case w.telemetry <- evt:
			default:
				w.log.Debug("Telemetry event lost")
			}
		}
	}
}

// Fanout serializes the event once and delivers the same bytes to every
// member the registry reports for the room at call time.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	payload, err := protocol.EncodeEvent(evt)
	if err != nil {
		w.log.Error("failed to encode event", "room_id", evt.RoomID(), "error", err)
		return
	}

	for _, member := range w.registry.MembersOf(evt.RoomID()) {
		if !member.Conn.Open() {
			continue
		}
		if err := member.Conn.Deliver(payload); err != nil {
			w.log.Debug("skipping member", "user_id", member.UserID, "error", err)
		}
	}

	for _, sink := range w.sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			w.log.Error("sink failed to consume event", "room_id", evt.RoomID(), "error", err)
		}
	}
}
