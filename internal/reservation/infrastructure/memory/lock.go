package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/market-preorders/internal/reservation/domain"
)

// rowLock is an exclusive lock whose acquisition can time out.
type rowLock chan struct{}

func newRowLock() rowLock { return make(rowLock, 1) }

func (l rowLock) acquire(ctx context.Context, timeout time.Duration) error {
	select {
	case l <- struct{}{}:
		return nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case l <- struct{}{}:
		return nil
	case <-expired:
		return fmt.Errorf("%w: lock wait exceeded %s", domain.ErrTransient, timeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrTransient, ctx.Err())
	}
}

func (l rowLock) release() { <-l }
