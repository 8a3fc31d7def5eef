package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"haven-chat/domain/chat"
	"haven-chat/domain/event"
)

func TestTelemetry_Counts_Risk_Hits(t *testing.T) {
	req := require.New(t)

	telemetryChan := make(chan event.DomainEvent, 8)
	hits := event.NewRiskHitHandler(slog.Default())
	worker := NewTelemetryWorker(slog.Default(), telemetryChan, []event.Handler{
		event.NewLatencyHandler(slog.Default(), 500*time.Millisecond),
		hits,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		req.NoError(worker.Run(ctx))
		close(done)
	}()

	// Given one flagged message and one clean one
	flagged := chat.Message{ID: uuid.New(), Room: "support", Content: "hard day",
		CreatedAt: time.Now().UTC(), RiskLevel: chat.RiskHigh}
	clean := chat.Message{ID: uuid.New(), Room: "support", Content: "hello",
		CreatedAt: time.Now().UTC(), RiskLevel: chat.RiskNone}
	telemetryChan <- event.MessageBroadcast{Message: flagged}
	telemetryChan <- event.MessageBroadcast{Message: clean}

	// Then only the flagged one is counted, under its level
	req.Eventually(func() bool {
		return hits.Snapshot()[chat.RiskHigh] == 1
	}, time.Second, 10*time.Millisecond)
	req.Zero(hits.Snapshot()[chat.RiskNone])

	cancel()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("telemetry worker should stop on context cancel")
	}
}
