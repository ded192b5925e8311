package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	gatewaymetrics "github.com/dreschagin/ddc-kiosk/internal/gateway/metrics"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter applies global and per-client request limits.
// Захват скриншота запускает headless Chrome, поэтому /api/v1/capture ограничен.
type Limiter struct {
	global *rate.Limiter
	perIP  map[string]*clientLimiter
	mu     sync.Mutex
	now    func() time.Time

	rps   rate.Limit
	burst int
}

func New(rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		global: rate.NewLimiter(rate.Limit(rps), burst*4),
		perIP:  make(map[string]*clientLimiter),
		now:    time.Now,
		rps:    rate.Limit(rps),
		burst:  burst,
	}
}

// PerMinute: n запросов в минуту на клиента с burst до n/6 (минимум 1)
func PerMinute(n int) *Limiter {
	if n <= 0 {
		return New(float64(rate.Inf), 1)
	}
	burst := n / 6
	if burst < 1 {
		burst = 1
	}
	return New(float64(n)/60, burst)
}

func (l *Limiter) Middleware(metrics *gatewaymetrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.allow(ip) {
			if metrics != nil {
				metrics.RateLimitDropped.Inc()
			}
			w.Header().Set("Retry-After", "10")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) allow(ip string) bool {
	if !l.global.Allow() {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	item, ok := l.perIP[ip]
	if !ok {
		item = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst), lastSeen: now}
		l.perIP[ip] = item
	}

	item.lastSeen = now
	if len(l.perIP) > 10_000 {
		l.cleanupLocked(now.Add(-10 * time.Minute))
	}

	return item.limiter.AllowN(now, 1)
}

func (l *Limiter) cleanupLocked(threshold time.Time) {
	for ip, entry := range l.perIP {
		if entry.lastSeen.Before(threshold) {
			delete(l.perIP, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	if forwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwardedFor != "" {
		parts := strings.Split(forwardedFor, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
