// Package health serves the liveness and readiness probes of the gateway.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Status is the state of one component or of the whole gateway.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Result is the outcome of one probe.
type Result struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
	Took   string `json:"took,omitempty"`
}

// Report aggregates every probe.
type Report struct {
	Status     Status            `json:"status"`
	Version    string            `json:"version"`
	CheckedAt  time.Time         `json:"checked_at"`
	Components map[string]Result `json:"components"`
}

// ProbeFunc inspects one dependency. A returned error marks the component
// failed; detail is reported either way.
type ProbeFunc func(ctx context.Context) (detail string, err error)

type probe struct {
	name string
	fn   ProbeFunc
	// critical failures make the gateway unhealthy, others only degrade it
	critical bool
}

// Checker runs probes concurrently and caches the report for ttl.
type Checker struct {
	version string
	timeout time.Duration
	ttl     time.Duration

	mu     sync.RWMutex
	probes []probe
	last   *Report

	group singleflight.Group
}

// NewChecker returns a checker whose reports stay fresh for ttl; zero
// disables caching.
func NewChecker(version string, ttl time.Duration) *Checker {
	return &Checker{
		version: version,
		timeout: 5 * time.Second,
		ttl:     ttl,
	}
}

// Critical registers a probe that makes the gateway unhealthy when it fails.
func (c *Checker) Critical(name string, fn ProbeFunc) {
	c.add(probe{name: name, fn: fn, critical: true})
}

// Optional registers a probe that only degrades the gateway when it fails.
func (c *Checker) Optional(name string, fn ProbeFunc) {
	c.add(probe{name: name, fn: fn})
}

func (c *Checker) add(p probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes = append(c.probes, p)
	sort.Slice(c.probes, func(i, j int) bool { return c.probes[i].name < c.probes[j].name })
	c.last = nil
}

// Check returns the cached report or runs every probe. Concurrent callers
// share one run.
func (c *Checker) Check(ctx context.Context) *Report {
	c.mu.RLock()
	if c.last != nil && time.Since(c.last.CheckedAt) < c.ttl {
		report := c.last
		c.mu.RUnlock()
		return report
	}
	probes := c.probes
	c.mu.RUnlock()

	v, _, _ := c.group.Do("check", func() (interface{}, error) {
		report := c.run(ctx, probes)
		c.mu.Lock()
		c.last = report
		c.mu.Unlock()
		return report, nil
	})
	return v.(*Report)
}

func (c *Checker) run(ctx context.Context, probes []probe) *Report {
	results := make([]Result, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()

			start := time.Now()
			detail, err := p.fn(pctx)
			res := Result{Status: StatusHealthy, Detail: detail, Took: time.Since(start).String()}
			if err != nil {
				res.Status = StatusDegraded
				if p.critical {
					res.Status = StatusUnhealthy
				}
				res.Detail = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		Status:     StatusHealthy,
		Version:    c.version,
		CheckedAt:  time.Now(),
		Components: make(map[string]Result, len(probes)),
	}
	for i, p := range probes {
		report.Components[p.name] = results[i]
		if results[i].Status.rank() > report.Status.rank() {
			report.Status = results[i].Status
		}
	}
	return report
}

// ServeHealth writes the full report. Degraded gateways still answer 200.
func (c *Checker) ServeHealth(w http.ResponseWriter, r *http.Request) {
	report := c.Check(r.Context())
	code := http.StatusOK
	if report.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

// ServeLive answers as long as the process serves HTTP.
func (c *Checker) ServeLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "alive",
		"version": c.version,
	})
}

// ServeReady answers 200 only when every probe is healthy.
func (c *Checker) ServeReady(w http.ResponseWriter, r *http.Request) {
	report := c.Check(r.Context())
	if report.Status != StatusHealthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"reason": report.Status,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Height fails until the ledger committed genesis.
func Height(height func() int64) ProbeFunc {
	return func(context.Context) (string, error) {
		h := height()
		if h == 0 {
			return "", fmt.Errorf("ledger has no genesis")
		}
		return fmt.Sprintf("height %d", h), nil
	}
}

// Capacity fails once count reaches limit. A non-positive limit never fails.
func Capacity(unit string, count func() int, limit int) ProbeFunc {
	return func(context.Context) (string, error) {
		n := count()
		if limit > 0 && n >= limit {
			return "", fmt.Errorf("%d %s, limit %d", n, unit, limit)
		}
		return fmt.Sprintf("%d %s", n, unit), nil
	}
}
