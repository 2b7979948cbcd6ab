// SPDX-License-Identifier: MIT

// Package ratelimit provides HTTP middleware limiting artifact requests
// globally and per client IP.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mediapack",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total rate limit rejections",
	},
	[]string{"limit_type"},
)

// Config holds rate limiting configuration.
type Config struct {
	GlobalRate  rate.Limit // requests per second
	GlobalBurst int

	PerIPRate  rate.Limit
	PerIPBurst int

	// CleanupInterval bounds the per-IP limiter map.
	CleanupInterval time.Duration
}

// DefaultConfig returns limits sized for tile and segment serving, which is
// bursty: a player fetching a playlist immediately fetches many tiles.
func DefaultConfig() Config {
	return Config{
		GlobalRate:      200,
		GlobalBurst:     400,
		PerIPRate:       50,
		PerIPBurst:      100,
		CleanupInterval: 10 * time.Minute,
	}
}

// Limiter enforces the configured limits.
type Limiter struct {
	cfg    Config
	global *rate.Limiter

	mu    sync.Mutex
	perIP map[string]*ipLimiter
	stop  chan struct{}
	once  sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter and starts its cleanup loop.
func New(cfg Config) *Limiter {
	l := &Limiter{
		cfg:    cfg,
		global: rate.NewLimiter(cfg.GlobalRate, cfg.GlobalBurst),
		perIP:  make(map[string]*ipLimiter),
		stop:   make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Close stops the cleanup loop.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

// Middleware rejects requests over the limits with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.global.Allow() {
			rateLimitExceeded.WithLabelValues("global").Inc()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		if !l.allowIP(clientIP(r)) {
			rateLimitExceeded.WithLabelValues("per_ip").Inc()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) allowIP(ip string) bool {
	l.mu.Lock()
	entry, ok := l.perIP[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.cfg.PerIPRate, l.cfg.PerIPBurst)}
		l.perIP[ip] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()
	return entry.limiter.Allow()
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-l.cfg.CleanupInterval)
			l.mu.Lock()
			for ip, entry := range l.perIP {
				if entry.lastSeen.Before(cutoff) {
					delete(l.perIP, ip)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
