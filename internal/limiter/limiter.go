// Package limiter throttles grading requests per client and caps the number
// of submissions graded at once.
package limiter

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/handlers/response"
	"gitlab.com/codegrader.net/internal/metrics"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

type Limiter struct {
	visitors *xsync.MapOf[string, *visitor]
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	slots    chan struct{}
	trusted  []netip.Prefix
	now      func() time.Time
}

// New builds a limiter from cfg. maxConcurrent <= 0 disables the global cap.
func New(cfg *config.RateLimitConfig, maxConcurrent int) *Limiter {
	l := &Limiter{
		visitors: xsync.NewMapOf[string, *visitor](),
		rps:      rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		idleTTL:  cfg.IdleTTL,
		trusted:  cfg.TrustedProxies,
		now:      time.Now,
	}
	if cfg.RequestsPerSecond <= 0 {
		l.rps = rate.Inf
	}
	if maxConcurrent > 0 {
		l.slots = make(chan struct{}, maxConcurrent)
	}
	return l
}

// Allow takes one token from the bucket of key
func (l *Limiter) Allow(key string) bool {
	v, _ := l.visitors.LoadOrCompute(key, func() *visitor {
		return &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
	})
	v.lastSeen.Store(l.now().UnixNano())
	return v.limiter.Allow()
}

// Acquire reserves a grading slot without waiting. The returned release must
// be called once the request is done.
func (l *Limiter) Acquire() (release func(), ok bool) {
	if l.slots == nil {
		return func() {}, true
	}
	select {
	case l.slots <- struct{}{}:
		return func() { <-l.slots }, true
	default:
		return nil, false
	}
}

// Sweep forgets clients idle for longer than the configured TTL and returns
// how many were removed
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.idleTTL).UnixNano()
	removed := 0
	l.visitors.Range(func(key string, v *visitor) bool {
		if v.lastSeen.Load() < cutoff {
			l.visitors.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (l *Limiter) Size() int {
	return l.visitors.Size()
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(l.clientIP(r)) {
			metrics.RateLimitHits.WithLabelValues("client").Inc()
			w.Header().Set("Retry-After", "1")
			response.WriteError(w, response.ErrorMessage{
				Message:    "too many requests",
				StatusCode: http.StatusTooManyRequests,
			})
			return
		}
		release, ok := l.Acquire()
		if !ok {
			metrics.RateLimitHits.WithLabelValues("capacity").Inc()
			w.Header().Set("Retry-After", "1")
			response.WriteError(w, response.ErrorMessage{
				Message:    "grading capacity exhausted",
				StatusCode: http.StatusTooManyRequests,
			})
			return
		}
		defer release()
		next.ServeHTTP(w, r)
	})
}

// clientIP is the peer address, unless the peer is a trusted proxy. Then
// X-Forwarded-For is walked from the right and the first untrusted hop wins,
// so a client cannot pick its own key by prepending entries.
func (l *Limiter) clientIP(r *http.Request) string {
	peer := remoteAddr(r)
	if len(l.trusted) == 0 || !l.isTrusted(peer) {
		return peer
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !l.isTrusted(hop) {
			return hop
		}
	}
	return peer
}

func (l *Limiter) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
