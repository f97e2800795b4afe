package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limits configures request throttling. Zero fields take the defaults.
type Limits struct {
	PerMinute       int // per client, every route
	SortsPerMinute  int // per client, backlog requests with a sort query
	ConcurrentSorts int // server-wide
}

func (l Limits) withDefaults() Limits {
	if l.PerMinute <= 0 {
		l.PerMinute = 100
	}
	if l.SortsPerMinute <= 0 {
		l.SortsPerMinute = 20
	}
	if l.ConcurrentSorts <= 0 {
		l.ConcurrentSorts = 4
	}
	return l
}

// RateLimiter counts requests per client over a sliding window
type RateLimiter struct {
	limit  int
	window time.Duration
	key    func(r *http.Request) string
	now    func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows limit requests per client IP within window.
// Stop must be called to release the sweeper goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		key:     GetClientIP,
		now:     time.Now,
		clients: make(map[string][]time.Time),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep forgets clients with no request inside the window
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, stamps := range rl.clients {
		if stamps = prune(stamps, now.Add(-rl.window)); len(stamps) == 0 {
			delete(rl.clients, key)
		} else {
			rl.clients[key] = stamps
		}
	}
}

// Stop ends the sweeper. Safe to call multiple times.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stop)
	})
}

// Allow records the request if the client is under its limit. Otherwise
// it returns false and how long until the oldest request leaves the window.
func (rl *RateLimiter) Allow(r *http.Request) (bool, time.Duration) {
	key := rl.key(r)
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	stamps := prune(rl.clients[key], now.Add(-rl.window))
	if len(stamps) >= rl.limit {
		rl.clients[key] = stamps
		return false, stamps[0].Add(rl.window).Sub(now)
	}
	rl.clients[key] = append(stamps, now)
	return true, 0
}

// prune drops timestamps before cutoff; stamps are in ascending order
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(cutoff) {
		i++
	}
	return stamps[i:]
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok, wait := rl.Allow(r); !ok {
			tooManyRequests(w, wait, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter, wait time.Duration, message string) {
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	respondError(w, http.StatusTooManyRequests, message)
}

// GetClientIP returns the request's host without the port.
// middleware.RealIP has already resolved proxy headers into RemoteAddr;
// reading X-Forwarded-For again here would let clients pick their own key.
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimiters holds the limiters whose sweepers need stopping
type RateLimiters struct {
	Global *RateLimiter
	Sort   *RateLimiter
}

// NewRateLimiters creates the global and sort limiters from limits
func NewRateLimiters(limits Limits) *RateLimiters {
	limits = limits.withDefaults()
	return &RateLimiters{
		Global: NewRateLimiter(limits.PerMinute, time.Minute),
		Sort:   NewRateLimiter(limits.SortsPerMinute, time.Minute),
	}
}

// Stop stops every limiter
func (rls *RateLimiters) Stop() {
	rls.Global.Stop()
	rls.Sort.Stop()
}

// SortGuard throttles custom orderings. Each one re-sorts a clone of the
// whole backlog, so they get a tighter per-client limit and a server-wide
// cap on how many run at once. Requests using the configured ordering are
// served as-is and pass straight through.
type SortGuard struct {
	limiter *RateLimiter
	slots   chan struct{}
}

// NewSortGuard admits at most concurrency custom sorts at a time
func NewSortGuard(limiter *RateLimiter, concurrency int) *SortGuard {
	return &SortGuard{limiter: limiter, slots: make(chan struct{}, concurrency)}
}

// Middleware answers 429 when the client is over its sort limit and 503
// when every slot is busy
func (g *SortGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sort") == "" {
			next.ServeHTTP(w, r)
			return
		}

		if ok, wait := g.limiter.Allow(r); !ok {
			tooManyRequests(w, wait, "sort rate limit exceeded")
			return
		}

		select {
		case g.slots <- struct{}{}:
			defer func() { <-g.slots }()
		default:
			respondError(w, http.StatusServiceUnavailable, "sort capacity full, try again shortly")
			return
		}

		next.ServeHTTP(w, r)
	})
}
