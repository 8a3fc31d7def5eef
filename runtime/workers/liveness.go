package workers

import (
	"context"
	"log/slog"
	"time"
)

// ProbeTarget is one tracked connection from the liveness worker's point of
// view. Awaiting reports whether the previous probe is still unanswered.
type ProbeTarget interface {
	ID() string
	Awaiting() bool
	Probe() error
	Terminate()
}

// SessionTable lists the currently tracked connections.
type SessionTable interface {
	Sessions() []ProbeTarget
}

// LivenessWorker probes every tracked connection on a fixed interval and
// forcibly terminates those that never answered the previous probe. A
// termination triggers the same cleanup as a client-initiated close, so a
// silently dead transport costs at most two intervals of resources.
type LivenessWorker struct {
	log      *slog.Logger
	table    SessionTable
	interval time.Duration
}

func NewLivenessWorker(log *slog.Logger, table SessionTable, interval time.Duration) *LivenessWorker {
	return &LivenessWorker{log: log, table: table, interval: interval}
}

func (w *LivenessWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping liveness probes")
			return nil
		case <-ticker.C:
			w.probeAll()
		}
	}
}

func (w *LivenessWorker) probeAll() {
	for _, sess := range w.table.Sessions() {
		if sess.Awaiting() {
			w.log.Warn("connection missed heartbeat, terminating", "session_id", sess.ID())
			sess.Terminate()
			continue
		}
		if err := sess.Probe(); err != nil {
			w.log.Warn("probe failed, terminating", "session_id", sess.ID(), "error", err)
			sess.Terminate()
		}
	}
}
