package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
)

// UserRateLimiter is a sliding-window limiter keyed by user, so a
// reconnect does not reset the budget.
type UserRateLimiter struct {
	mu        sync.Mutex
	history   map[domain.UserID][]time.Time
	limit     int
	interval  time.Duration
	now       func() time.Time
	nextSweep time.Time
}

func NewUserRateLimiter(limit int, interval time.Duration) *UserRateLimiter {
	return &UserRateLimiter{
		history:  make(map[domain.UserID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *UserRateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)
	rl.sweep(now, windowStart)

	fresh := prune(rl.history[uid], windowStart)
	if len(fresh) >= rl.limit {
		rl.history[uid] = fresh
		return false
	}
	rl.history[uid] = append(fresh, now)
	return true
}

// Len reports how many users currently have a window.
func (rl *UserRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.history)
}

// sweep drops users whose whole window expired, at most once per interval.
func (rl *UserRateLimiter) sweep(now, windowStart time.Time) {
	if now.Before(rl.nextSweep) {
		return
	}
	rl.nextSweep = now.Add(rl.interval)
	for uid, attempts := range rl.history {
		if fresh := prune(attempts, windowStart); len(fresh) == 0 {
			delete(rl.history, uid)
		} else {
			rl.history[uid] = fresh
		}
	}
}

func prune(attempts []time.Time, windowStart time.Time) []time.Time {
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}
