package mailer

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// throttle applies a token bucket per recipient and periodically evicts
// idle entries.
type throttle struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu    sync.Mutex
	byKey map[string]*bucket
	hits  uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newThrottle returns nil, which allows everything, if rps or burst is
// not positive.
func newThrottle(rps float64, burst int, idleTTL time.Duration) *throttle {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &throttle{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		byKey:   make(map[string]*bucket),
	}
}

// allow reports whether one more email may go to recipient at now.
func (t *throttle) allow(recipient string, now time.Time) bool {
	if t == nil {
		return true
	}
	key := strings.ToLower(strings.TrimSpace(recipient))

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.byKey[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.byKey[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	t.hits++
	if t.hits%512 == 0 {
		cutoff := now.Add(-t.idleTTL)
		for k, v := range t.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(t.byKey, k)
			}
		}
	}
	return allowed
}
