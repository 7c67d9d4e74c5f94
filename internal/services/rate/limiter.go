// Package rate throttles point earning so rapid-fire posting does not
// farm the ledger.
package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter allows at most perWindow credited messages per member within
// a sliding redis-backed window.
type Limiter struct {
	store     WindowStore
	perWindow int
	window    time.Duration
}

func NewLimiter(store WindowStore, perWindow int, window time.Duration) *Limiter {
	if perWindow < 0 {
		perWindow = 0
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		store:     store,
		perWindow: perWindow,
		window:    window,
	}
}

// AllowEarn reports whether the member may still earn points in the
// current window. A zero perWindow disables the throttle entirely.
func (l *Limiter) AllowEarn(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}
	if l.perWindow == 0 {
		return true, nil
	}
	if l.store == nil {
		return false, fmt.Errorf("throttle store is nil")
	}

	count, err := l.store.IncrementWindow(ctx, earnKey(userID), l.window)
	if err != nil {
		return false, err
	}
	return count <= int64(l.perWindow), nil
}

func earnKey(userID int64) string {
	return "points:earn:" + strconv.FormatInt(userID, 10)
}
