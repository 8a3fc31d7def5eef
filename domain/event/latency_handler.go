package event

import (
	"log/slog"
	"time"
)

type LatencyHandler struct {
	log              *slog.Logger
	latencyThreshold time.Duration
}

func NewLatencyHandler(log *slog.Logger, latencyThreshold time.Duration) *LatencyHandler {
	return &LatencyHandler{log: log, latencyThreshold: latencyThreshold}
}

func (h *LatencyHandler) Handle(e DomainEvent) {
	if payload, ok := e.(MessageBroadcast); ok {
		leadTime := time.Since(payload.Message.CreatedAt)

		h.log.Info("telemetry: processing latency",
			"room_id", payload.Message.Room,
			"user_id", payload.Message.UserID,
			"lead_time_ms", leadTime.Milliseconds(),
		)

		if leadTime > h.latencyThreshold {
			h.log.Warn("high latency detected", "lead_time", leadTime)
		}
	}
}
