// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

// Package health implements liveness and readiness probes for the
// relying-party server, following Kubernetes probe semantics.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status reports the outcome of a probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the result of a single readiness check.
type CheckResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// CheckFunc probes a single dependency. It should return quickly; the
// caller records latency.
type CheckFunc func(ctx context.Context) error

// Checker aggregates readiness checks for the server's dependencies.
// Liveness is unconditional: a running process is alive. Readiness fails
// while any registered dependency check fails.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates an empty Checker.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]CheckFunc)}
}

// Register adds a readiness check under name, replacing any existing
// check with that name.
func (c *Checker) Register(name string, check CheckFunc) {
	if check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Ready runs all registered checks and returns their results.
func (c *Checker) Ready(ctx context.Context) []CheckResult {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make([]CheckResult, 0, len(checks))
	for name, check := range checks {
		start := time.Now()
		result := CheckResult{Name: name, Status: StatusHealthy}
		if err := check(ctx); err != nil {
			result.Status = StatusUnhealthy
			result.Error = err.Error()
		}
		result.Latency = time.Since(start)
		results = append(results, result)
	}
	return results
}

// IsReady reports whether every registered check passes.
func (c *Checker) IsReady(ctx context.Context) bool {
	for _, result := range c.Ready(ctx) {
		if result.Status != StatusHealthy {
			return false
		}
	}
	return true
}

// LiveHandler serves the liveness probe. A responding process is alive.
func (c *Checker) LiveHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]Status{"status": StatusHealthy})
}

// ReadyHandler serves the readiness probe. It returns 503 with per-check
// detail when any dependency check fails.
func (c *Checker) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	results := c.Ready(r.Context())

	status := StatusHealthy
	code := http.StatusOK
	for _, result := range results {
		if result.Status != StatusHealthy {
			status = StatusUnhealthy
			code = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(struct {
		Status Status        `json:"status"`
		Checks []CheckResult `json:"checks,omitempty"`
	}{Status: status, Checks: results})
}
