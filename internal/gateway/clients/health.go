package clients

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

type HealthStatus struct {
	Status string `json:"status"`
}

// CheckHealth calls the API's /health route, which lives at the server
// root rather than under the API prefix.
func (c *APIClient) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var h HealthStatus
	if err := c.do(ctx, request{method: http.MethodGet, path: "/health", resource: "health"}, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

type HealthChecker interface {
	CheckHealth(ctx context.Context) (*HealthStatus, error)
}

// HealthMonitor polls the API in the background so health endpoints can
// answer without a round trip.
type HealthMonitor struct {
	checker  HealthChecker
	interval time.Duration
	onChange func(healthy bool)

	mu        sync.RWMutex
	healthy   bool
	lastCheck time.Time
	lastErr   error
}

func NewHealthMonitor(checker HealthChecker, interval time.Duration, onChange func(healthy bool)) *HealthMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HealthMonitor{checker: checker, interval: interval, onChange: onChange}
}

// Run checks once immediately and then every interval until ctx ends.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.Check(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

func (m *HealthMonitor) Check(ctx context.Context) bool {
	h, err := m.checker.CheckHealth(ctx)
	healthy := err == nil && h != nil && h.Status == "healthy"

	m.mu.Lock()
	changed := healthy != m.healthy || m.lastCheck.IsZero()
	m.healthy = healthy
	m.lastCheck = time.Now()
	m.lastErr = err
	m.mu.Unlock()

	if changed {
		if healthy {
			log.Println("POS API is reachable")
		} else {
			log.Printf("POS API is unavailable: %v", err)
		}
		if m.onChange != nil {
			m.onChange(healthy)
		}
	}
	return healthy
}

type HealthSnapshot struct {
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"last_check"`
	Error     string    `json:"error,omitempty"`
}

func (m *HealthMonitor) Snapshot() HealthSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := HealthSnapshot{Healthy: m.healthy, LastCheck: m.lastCheck}
	if m.lastErr != nil {
		snap.Error = m.lastErr.Error()
	}
	return snap
}
