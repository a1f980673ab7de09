package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chatline/observability"
)

// Heartbeat logs process health (CPU, RAM, status) together with the chat
// counters on a fixed interval. Purely observational; the chat path never
// depends on it.
type Heartbeat struct {
	log      *slog.Logger
	stats    *observability.ChatStats
	interval time.Duration
}

func NewHeartbeat(log *slog.Logger, stats *observability.ChatStats, interval time.Duration) *Heartbeat {
	return &Heartbeat{log: log, stats: stats, interval: interval}
}

func (w *Heartbeat) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := selfStats(proc)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			snapshot := w.stats.Snapshot()
			w.log.Info("Heartbeat",
				"pid", os.Getpid(),
				"status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"active_sessions", snapshot.ActiveSessions,
				"broadcasts", snapshot.Broadcasts,
				"private_messages", snapshot.PrivateMessages,
				"kicks", snapshot.Kicks,
				"bans", snapshot.Bans,
				"idle_disconnects", snapshot.IdleDisconnects,
			)
		}
	}
}

// selfStats retrieves memory, CPU and OS status for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}
	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
