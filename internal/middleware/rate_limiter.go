package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy is a token bucket refilled with Requests tokens per Window, holding at most Burst.
type Policy struct {
	Requests int
	Window   time.Duration
	Burst    int
}

func (p Policy) normalized() Policy {
	if p.Requests <= 0 {
		p.Requests = 1
	}
	if p.Window <= 0 {
		p.Window = time.Second
	}
	if p.Burst <= 0 {
		p.Burst = 1
	}
	return p
}

type bucketKey struct {
	scope  string
	client string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ScopedLimiter keeps one bucket per scope and client, so an upload burst does not spend
// the same client's folder budget. Idle buckets are dropped after the ttl.
type ScopedLimiter struct {
	mu        sync.Mutex
	fallback  Policy
	policies  map[string]Policy
	buckets   map[bucketKey]*bucket
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewScopedLimiter applies fallback to every scope without its own policy.
func NewScopedLimiter(fallback Policy, ttl time.Duration) *ScopedLimiter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ScopedLimiter{
		fallback: fallback.normalized(),
		policies: make(map[string]Policy),
		buckets:  make(map[bucketKey]*bucket),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithScope overrides the policy of one scope. It must be called before the limiter is shared.
func (l *ScopedLimiter) WithScope(scope string, p Policy) *ScopedLimiter {
	l.policies[scope] = p.normalized()
	return l
}

// Reserve admits one request from client in scope, or reports how long it must wait.
// A refused request does not consume a token.
func (l *ScopedLimiter) Reserve(scope, client string) (time.Duration, bool) {
	if client == "" {
		client = "unknown"
	}
	now := l.now()

	l.mu.Lock()
	b := l.bucketLocked(bucketKey{scope: scope, client: client}, now)
	l.sweepLocked(now)
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return l.policyFor(scope).Window, false
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return wait, false
	}
	return 0, true
}

func (l *ScopedLimiter) policyFor(scope string) Policy {
	if p, ok := l.policies[scope]; ok {
		return p
	}
	return l.fallback
}

func (l *ScopedLimiter) bucketLocked(key bucketKey, now time.Time) *bucket {
	if b, ok := l.buckets[key]; ok {
		b.lastSeen = now
		return b
	}
	p := l.policyFor(key.scope)
	b := &bucket{
		limiter:  rate.NewLimiter(rate.Every(p.Window/time.Duration(p.Requests)), p.Burst),
		lastSeen: now,
	}
	l.buckets[key] = b
	return b
}

// sweepLocked drops idle buckets at most once per ttl.
func (l *ScopedLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.ttl {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.ttl {
			delete(l.buckets, key)
		}
	}
}

func (l *ScopedLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
