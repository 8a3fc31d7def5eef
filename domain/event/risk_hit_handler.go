package event

import (
	"log/slog"
	"sync"

	"haven-chat/domain/chat"
)

// RiskHitHandler keeps running counters of flagged messages per risk level.
// Counters are process-local and reset on restart.
type RiskHitHandler struct {
	mu      sync.Mutex
	log     *slog.Logger
	counter uint64
	hits    map[chat.RiskLevel]uint64
}

func NewRiskHitHandler(log *slog.Logger) *RiskHitHandler {
	return &RiskHitHandler{
		log:  log,
		hits: make(map[chat.RiskLevel]uint64),
	}
}

func (h *RiskHitHandler) Handle(e DomainEvent) {
	payload, ok := e.(MessageBroadcast)
	if !ok {
		return
	}
	if payload.Message.RiskLevel == chat.RiskNone {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.counter++
	h.hits[payload.Message.RiskLevel]++

	h.log.Info("telemetry: risk hit",
		"room_id", payload.Message.Room,
		"risk_level", payload.Message.RiskLevel,
		"total_hits", h.counter,
	)
}

// Snapshot returns a copy of the per-level counters.
func (h *RiskHitHandler) Snapshot() map[chat.RiskLevel]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[chat.RiskLevel]uint64, len(h.hits))
	for k, v := range h.hits {
		out[k] = v
	}
	return out
}
