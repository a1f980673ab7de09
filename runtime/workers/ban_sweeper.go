package workers

import (
	"context"
	"log/slog"
	"time"

	"chatline/contract"
)

// BanSweeper periodically clears temporary bans whose expiry has passed.
// It only talks to the store; session state is untouched. Each tick is one
// atomic store operation, so a failed tick simply retries on the next one.
type BanSweeper struct {
	log      *slog.Logger
	store    contract.UserStore
	interval time.Duration
}

func NewBanSweeper(log *slog.Logger, store contract.UserStore, interval time.Duration) *BanSweeper {
	return &BanSweeper{log: log, store: store, interval: interval}
}

func (w *BanSweeper) Run(ctx context.Context) error {
	w.log.Info("Starting ban sweeper", "interval", w.interval)
	w.sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *BanSweeper) sweep() {
	cleared, err := w.store.SweepExpiredBans()
	if err != nil {
		w.log.Error("Ban sweep failed", "err", err)
		return
	}
	if cleared > 0 {
		w.log.Info("Cleared expired bans", "count", cleared)
	}
}
