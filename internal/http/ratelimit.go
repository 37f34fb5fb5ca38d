package http

import (
	"sync"
	"time"
)

const (
	mutationsPerMinute = 60
	visitorStaleAfter  = 10 * time.Minute
)

// visitorLimiter is a fixed-window per-IP limiter for mutating requests.
type visitorLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	stopCh   chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	lastSeen time.Time
	requests int
}

func newVisitorLimiter() *visitorLimiter {
	vl := &visitorLimiter{
		visitors: make(map[string]*visitor),
		stopCh:   make(chan struct{}),
	}
	go vl.cleanupLoop()
	return vl
}

func (vl *visitorLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			vl.dropStale()
		case <-vl.stopCh:
			return
		}
	}
}

func (vl *visitorLimiter) dropStale() {
	vl.mu.Lock()
	defer vl.mu.Unlock()

	cutoff := time.Now().Add(-visitorStaleAfter)
	for ip, v := range vl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(vl.visitors, ip)
		}
	}
}

func (vl *visitorLimiter) allow(clientIP string) bool {
	vl.mu.Lock()
	defer vl.mu.Unlock()

	now := time.Now()
	v, ok := vl.visitors[clientIP]
	if !ok || now.Sub(v.lastSeen) > time.Minute {
		vl.visitors[clientIP] = &visitor{lastSeen: now, requests: 1}
		return true
	}

	v.requests++
	v.lastSeen = now
	return v.requests <= mutationsPerMinute
}

func (vl *visitorLimiter) stop() {
	vl.stopOnce.Do(func() { close(vl.stopCh) })
}
