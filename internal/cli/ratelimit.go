package cli

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// loginLimiter throttles login attempts per username so a scripted session
// cannot brute-force credentials.
type loginLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	r       rate.Limit
	burst   int
}

func newLoginLimiter(rps float64, burst int) *loginLimiter {
	ll := &loginLimiter{
		entries: make(map[string]*limiterEntry),
		r:       rate.Limit(rps),
		burst:   burst,
	}
	// cleanup stale entries every minute
	go func() {
		for {
			time.Sleep(time.Minute)
			ll.mu.Lock()
			for name, e := range ll.entries {
				if time.Since(e.seen) > 3*time.Minute {
					delete(ll.entries, name)
				}
			}
			ll.mu.Unlock()
		}
	}()
	return ll
}

func (ll *loginLimiter) allow(username string) bool {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	e, ok := ll.entries[username]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(ll.r, ll.burst)}
		ll.entries[username] = e
	}
	e.seen = time.Now()
	return e.lim.Allow()
}
