package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket: rate tokens per second up to burst. The relay
// events are deliberately unlimited; this guards the AI suggest endpoint.
type Limiter struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.lastUpdate = now

	l.tokens += elapsed * l.rate
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}

	if l.tokens >= 1 {
		l.tokens--
		return true
	}

	return false
}

// ClientLimiters hands out one Limiter per client key (the caller's IP).
type ClientLimiters struct {
	limiters map[string]*Limiter
	rate     float64
	burst    int
	mu       sync.RWMutex
	stop     chan struct{}
}

func NewClientLimiters(rate float64, burst int) *ClientLimiters {
	cl := &ClientLimiters{
		limiters: make(map[string]*Limiter),
		rate:     rate,
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go cl.cleanup()
	return cl
}

func (cl *ClientLimiters) Get(clientKey string) *Limiter {
	cl.mu.RLock()
	limiter, ok := cl.limiters[clientKey]
	cl.mu.RUnlock()

	if ok {
		return limiter
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if limiter, ok := cl.limiters[clientKey]; ok {
		return limiter
	}

	limiter = NewLimiter(cl.rate, cl.burst)
	cl.limiters[clientKey] = limiter
	return limiter
}

func (cl *ClientLimiters) Stop() {
	close(cl.stop)
}

// cleanup drops the whole map once it grows past a bound; per-entry aging
// is not worth tracking for this deployment size.
func (cl *ClientLimiters) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-cl.stop:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if len(cl.limiters) > 10000 {
				cl.limiters = make(map[string]*Limiter)
			}
			cl.mu.Unlock()
		}
	}
}
