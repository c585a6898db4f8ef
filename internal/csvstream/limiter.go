package csvstream

import (
	"sync"

	"github.com/google/uuid"

	"github.com/qazna-labs/recordvault/internal/apperr"
)

// Limiter enforces the per-user streaming concurrency cap. Acquire returns
// a guard whose Release decrements the counter on every exit path,
// including a deferred call immediately after a successful acquire so a
// panic mid-stream still releases the slot.
type Limiter struct {
	max int

	mu       sync.Mutex
	counters map[uuid.UUID]int
}

// NewLimiter builds a Limiter capping concurrent streams per user at max.
func NewLimiter(max int) *Limiter {
	return &Limiter{max: max, counters: make(map[uuid.UUID]int)}
}

// Guard releases one previously acquired slot. Release is idempotent: only
// the first call frees the slot, later calls do nothing.
type Guard struct {
	release func()
}

// Release decrements the caller's stream counter.
func (g Guard) Release() {
	if g.release != nil {
		g.release()
	}
}

// Acquire admits one more concurrent stream for userID, or returns
// TooManyRequests if the user is already at the cap.
func (l *Limiter) Acquire(userID uuid.UUID) (Guard, *apperr.Error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counters[userID] >= l.max {
		return Guard{}, apperr.New(apperr.TooManyRequests, "too many concurrent streams for this user")
	}
	l.counters[userID]++
	var once sync.Once
	return Guard{release: func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.counters[userID]--
			if l.counters[userID] <= 0 {
				delete(l.counters, userID)
			}
		})
	}}, nil
}
