package workers

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type probeStub struct {
	id         string
	awaiting   bool
	probeErr   error
	probed     int
	terminated bool
}

func (p *probeStub) ID() string { return p.id }

func (p *probeStub) Awaiting() bool { return p.awaiting }

func (p *probeStub) Terminate() { p.terminated = true }

func (p *probeStub) Probe() error {
	p.probed++
	return p.probeErr
}

type tableStub struct {
	targets []ProbeTarget
}

func (t tableStub) Sessions() []ProbeTarget { return t.targets }

func TestLiveness_Probes_Responsive_Connections(t *testing.T) {
	req := require.New(t)

	responsive := &probeStub{id: uuid.NewString()}
	worker := NewLivenessWorker(slog.Default(), tableStub{targets: []ProbeTarget{responsive}}, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	req.NoError(worker.Run(ctx))

	// Then the connection was probed and never terminated
	req.GreaterOrEqual(responsive.probed, 1)
	req.False(responsive.terminated)
}

func TestLiveness_Terminates_Unanswered_Connection(t *testing.T) {
	req := require.New(t)

	// Given a connection that never answered the previous probe
	silent := &probeStub{id: uuid.NewString(), awaiting: true}
	healthy := &probeStub{id: uuid.NewString()}
	worker := NewLivenessWorker(slog.Default(), tableStub{targets: []ProbeTarget{silent, healthy}}, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	req.NoError(worker.Run(ctx))

	// Then the silent one was terminated without being probed again
	req.True(silent.terminated)
	req.Zero(silent.probed)

	// And the healthy one kept its membership
	req.False(healthy.terminated)
}

func TestLiveness_Terminates_On_Probe_Failure(t *testing.T) {
	req := require.New(t)

	// Given a connection whose transport rejects the probe
	broken := &probeStub{id: uuid.NewString(), probeErr: errors.New("broken pipe")}
	worker := NewLivenessWorker(slog.Default(), tableStub{targets: []ProbeTarget{broken}}, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	req.NoError(worker.Run(ctx))

	req.True(broken.terminated)
}
