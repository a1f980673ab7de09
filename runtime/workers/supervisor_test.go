package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingWorker struct {
	runs     atomic.Int32
	behavior func(runs int32, ctx context.Context) error
}

func (w *countingWorker) Run(ctx context.Context) error {
	return w.behavior(w.runs.Add(1), ctx)
}

func TestSupervisor_RestartsPanickingWorker(t *testing.T) {
	worker := &countingWorker{behavior: func(runs int32, ctx context.Context) error {
		if runs < 3 {
			panic("boom")
		}
		return nil
	}}

	supervisor := NewSupervisor(slog.Default(), 10*time.Millisecond)
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not settle")
	}
	require.Equal(t, int32(3), worker.runs.Load())
}

func TestSupervisor_DoesNotRestartCleanFinish(t *testing.T) {
	worker := &countingWorker{behavior: func(int32, context.Context) error {
		return nil
	}}

	supervisor := NewSupervisor(slog.Default(), 10*time.Millisecond)
	supervisor.Add(worker)
	supervisor.Run(context.Background())

	require.Equal(t, int32(1), worker.runs.Load())
}

func TestSupervisor_StopCancelsWorkers(t *testing.T) {
	worker := &countingWorker{behavior: func(_ int32, ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	supervisor := NewSupervisor(slog.Default(), 10*time.Millisecond)
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return worker.runs.Load() == 1 },
		2*time.Second, 5*time.Millisecond)
	supervisor.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}
