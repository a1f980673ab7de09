package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatline/domain"
	"chatline/errors"
)

// sweepRecorder counts sweeps and can simulate store failures. Only the
// sweep method matters here; the rest of the store contract is inert.
type sweepRecorder struct {
	mu      sync.Mutex
	sweeps  int
	cleared int
	fail    bool
}

func (r *sweepRecorder) SweepExpiredBans() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps++
	if r.fail {
		return 0, errors.ErrUserNotFound
	}
	return r.cleared, nil
}

func (r *sweepRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweeps
}

func (r *sweepRecorder) Resolve(_, _ string) (string, error) { return "", nil }
func (r *sweepRecorder) Register(_, _, _ string) error       { return nil }
func (r *sweepRecorder) Role(string) (domain.Role, error)    { return domain.RoleUser, nil }
func (r *sweepRecorder) Login(string) (string, error)        { return "", nil }
func (r *sweepRecorder) RenameUsername(_, _ string) error    { return nil }
func (r *sweepRecorder) SetBan(string, *int) error           { return nil }
func (r *sweepRecorder) ClearBan(string) error               { return nil }
func (r *sweepRecorder) IsBanned(string) (bool, error)       { return false, nil }

func TestBanSweeper_SweepsImmediatelyThenOnEachTick(t *testing.T) {
	req := require.New(t)
	store := &sweepRecorder{cleared: 2}
	sweeper := NewBanSweeper(slog.Default(), store, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Millisecond)
	defer cancel()

	err := sweeper.Run(ctx)
	req.ErrorIs(err, context.DeadlineExceeded)

	// One sweep up front plus roughly one per tick.
	req.GreaterOrEqual(store.count(), 3)
}

func TestBanSweeper_KeepsTickingAfterStoreError(t *testing.T) {
	req := require.New(t)
	store := &sweepRecorder{fail: true}
	sweeper := NewBanSweeper(slog.Default(), store, 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := sweeper.Run(ctx)
	req.ErrorIs(err, context.DeadlineExceeded)
	req.GreaterOrEqual(store.count(), 2, "a failed sweep must not stop the loop")
}
