// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"sync"
	"time"
)

// HealthStatusType represents the overall health status.
type HealthStatusType string

const (
	// HealthStatusHealthy indicates all components are functioning normally.
	HealthStatusHealthy HealthStatusType = "healthy"
	// HealthStatusDegraded indicates some components are experiencing issues but still operational.
	HealthStatusDegraded HealthStatusType = "degraded"
	// HealthStatusUnhealthy indicates critical components are failing.
	HealthStatusUnhealthy HealthStatusType = "unhealthy"
)

// HealthConfig holds configuration for health checking.
type HealthConfig struct {
	// Timeout is the maximum time to wait for a single check.
	Timeout time.Duration
}

// DefaultHealthConfig returns sensible defaults for health checking.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Timeout: 5 * time.Second,
	}
}

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	// Healthy indicates whether the component is functioning.
	Healthy bool `json:"healthy"`
	// Degraded indicates the component is operational but experiencing issues.
	Degraded bool `json:"degraded,omitempty"`
	// Name is the component identifier.
	Name string `json:"name"`
	// Message provides additional context about the health status.
	Message string `json:"message,omitempty"`
	// Error contains error details if unhealthy.
	Error string `json:"error,omitempty"`
	// LastCheck is when the health check was performed.
	LastCheck time.Time `json:"last_check"`
	// Details contains component-specific health information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthCheckable is implemented by components that support health checking.
type HealthCheckable interface {
	// HealthCheck performs a health check and returns the result.
	HealthCheck(ctx context.Context) ComponentHealth
}

// HealthCheckFunc adapts a function to HealthCheckable.
type HealthCheckFunc func(ctx context.Context) ComponentHealth

// HealthCheck implements HealthCheckable.
func (f HealthCheckFunc) HealthCheck(ctx context.Context) ComponentHealth {
	return f(ctx)
}

// PingCheck builds a HealthCheckable from a ping function.
func PingCheck(ping func(ctx context.Context) error) HealthCheckable {
	return HealthCheckFunc(func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Healthy: false, Error: err.Error()}
		}
		return ComponentHealth{Healthy: true, Message: "reachable"}
	})
}

// OverallHealth represents the aggregated health status of all components.
type OverallHealth struct {
	// Healthy indicates whether all critical components are healthy.
	Healthy bool `json:"healthy"`
	// Status is the overall health status.
	Status HealthStatusType `json:"status"`
	// Timestamp is when this health check was performed.
	Timestamp time.Time `json:"timestamp"`
	// Components contains individual component health.
	Components map[string]ComponentHealth `json:"components"`
}

// HealthChecker manages health checks for multiple components.
type HealthChecker struct {
	config     HealthConfig
	mu         sync.RWMutex
	components map[string]HealthCheckable
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker(cfg HealthConfig) *HealthChecker {
	return &HealthChecker{
		config:     cfg,
		components: make(map[string]HealthCheckable),
	}
}

// RegisterComponent registers a component for health checking.
func (h *HealthChecker) RegisterComponent(name string, component HealthCheckable) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = component
}

// UnregisterComponent removes a component from health checking.
func (h *HealthChecker) UnregisterComponent(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.components, name)
}

// CheckAll checks every registered component concurrently. Any unhealthy
// component makes the whole result unhealthy.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	h.mu.RLock()
	components := make(map[string]HealthCheckable, len(h.components))
	for name, comp := range h.components {
		components[name] = comp
	}
	h.mu.RUnlock()

	overall := OverallHealth{
		Healthy:    true,
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth, len(components)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, comp := range components {
		wg.Add(1)
		go func(name string, comp HealthCheckable) {
			defer wg.Done()
			result := h.check(ctx, name, comp)

			mu.Lock()
			defer mu.Unlock()
			overall.Components[name] = result
			if !result.Healthy {
				overall.Healthy = false
				overall.Status = HealthStatusUnhealthy
			} else if result.Degraded && overall.Status == HealthStatusHealthy {
				overall.Status = HealthStatusDegraded
			}
		}(name, comp)
	}
	wg.Wait()

	return overall
}

// CheckComponent checks a single registered component.
func (h *HealthChecker) CheckComponent(ctx context.Context, name string) ComponentHealth {
	h.mu.RLock()
	component, exists := h.components[name]
	h.mu.RUnlock()

	if !exists {
		return ComponentHealth{
			Name:      name,
			Healthy:   false,
			Error:     "component not found",
			LastCheck: time.Now(),
		}
	}
	return h.check(ctx, name, component)
}

// check runs one health check bounded by the configured timeout.
func (h *HealthChecker) check(ctx context.Context, name string, comp HealthCheckable) ComponentHealth {
	checkCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	resultCh := make(chan ComponentHealth, 1)
	go func() {
		result := comp.HealthCheck(checkCtx)
		result.Name = name
		result.LastCheck = time.Now()
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-checkCtx.Done():
		return ComponentHealth{
			Name:      name,
			Healthy:   false,
			Error:     "health check timeout",
			LastCheck: time.Now(),
		}
	}
}
