package workers

import (
	"context"
	"log/slog"

	"haven-chat/domain/event"
)

// TelemetryWorker drains the telemetry copy of the event stream into its
// handlers. Losing telemetry events is acceptable; slowing the fanout is not.
type TelemetryWorker struct {
	log           *slog.Logger
	telemetryChan chan event.DomainEvent
	handlers      []event.Handler
}

func NewTelemetryWorker(log *slog.Logger, telemetryChan chan event.DomainEvent,
	handlers []event.Handler) *TelemetryWorker {
	return &TelemetryWorker{log: log, telemetryChan: telemetryChan, handlers: handlers}
}

func (w TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case evt, ok := <-w.telemetryChan:
			if !ok {
				return nil
			}
			for _, h := range w.handlers {
				h.Handle(evt)
			}
		}
	}
}
