package kit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// IPRateLimiter allows at most limit requests per client IP within a sliding
// window.
type IPRateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if retry, limited := l.recordAndCheck(ip, l.now()); limited {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)+1))
			WriteError(w, r, http.StatusTooManyRequests, "too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recordAndCheck reports whether ip is over the limit and, if so, how long
// until its oldest hit leaves the window.
func (l *IPRateLimiter) recordAndCheck(ip string, now time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := prune(l.hits[ip], now.Add(-l.window))

	if len(ts) >= l.limit {
		l.hits[ip] = ts
		return ts[0].Add(l.window).Sub(now), true
	}

	l.hits[ip] = append(ts, now)
	return 0, false
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	n := 0
	for _, t := range ts {
		if t.After(cutoff) {
			ts[n] = t
			n++
		}
	}
	return ts[:n]
}

func clientIP(r *http.Request) string {
	if ip := firstForwardedFor(r.Header.Get("X-Forwarded-For")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}

	return r.RemoteAddr
}

func firstForwardedFor(xff string) string {
	if xff == "" {
		return ""
	}
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}
