package router

import (
	"context"
	"fmt"
	"time"

	"taskfed/internal/backends"
)

// healthLoop re-checks every pooled entry on a fixed cadence, regardless of
// its current health. Runs until Shutdown closes the stop channel.
func (r *Router) healthLoop() {
	defer r.wg.Done()

	interval := r.cfg.HealthCheckInterval()
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.checkAll()
		case <-r.stop:
			return
		}
	}
}

// checkAll health-checks every pooled source
func (r *Router) checkAll() {
	r.mu.RLock()
	ids := append([]string(nil), r.order...)
	r.mu.RUnlock()

	for _, id := range ids {
		r.checkSource(id)
	}
}

// checkSource runs one health check and applies the state transition.
// A source whose backend could not even be constructed gets a rebuild
// attempt, so startup failures remain recoverable.
func (r *Router) checkSource(id string) {
	r.mu.RLock()
	entry, ok := r.pool[id]
	var backend backends.Backend
	if ok {
		backend = entry.backend
	}
	shuttingDown := r.shuttingDown
	r.mu.RUnlock()
	if !ok || shuttingDown {
		return
	}

	timeout := r.cfg.OperationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if backend == nil {
		rebuilt, healthy := r.buildBackend(ctx, entry.source)
		r.mu.Lock()
		entry.backend = rebuilt
		r.mu.Unlock()
		r.applyHealthResult(id, healthy)
		return
	}

	err := safeHealthCheck(ctx, backend)
	r.applyHealthResult(id, err == nil)
}

// applyHealthResult records a health-check outcome and logs transitions.
// Recovery resets the failure count; degradation schedules a fast recheck.
func (r *Router) applyHealthResult(id string, healthy bool) {
	r.mu.Lock()
	entry, ok := r.pool[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	wasHealthy := entry.healthy
	entry.lastHealthCheck = time.Now().UTC()

	if healthy {
		entry.healthy = true
		entry.failureCount = 0
	} else {
		entry.healthy = false
		if entry.failureCount < r.maxFailures() {
			entry.failureCount = r.maxFailures()
		}
	}
	r.mu.Unlock()

	if healthy && !wasHealthy {
		r.logger.Info("Source recovered", map[string]interface{}{
			"source": id,
		})
	}
	if !healthy && wasHealthy {
		r.logger.Warn("Source became unhealthy", map[string]interface{}{
			"source": id,
		})
		r.scheduleRecheck(id)
	}
}

// recordFailure increments a source's consecutive-failure count after a
// failed operation attempt. Crossing the threshold flips the source
// unhealthy and schedules an out-of-band recheck to catch fast recovery.
func (r *Router) recordFailure(id string, cause error) {
	r.mu.Lock()
	entry, ok := r.pool[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	entry.failureCount++
	flipped := false
	if entry.healthy && entry.failureCount >= r.maxFailures() {
		entry.healthy = false
		flipped = true
	}
	failureCount := entry.failureCount
	r.mu.Unlock()

	r.logger.Debug("Source operation failed", map[string]interface{}{
		"source":       id,
		"failureCount": failureCount,
		"error":        cause.Error(),
	})

	if flipped {
		r.logger.Warn("Source became unhealthy", map[string]interface{}{
			"source":       id,
			"failureCount": failureCount,
		})
		r.scheduleRecheck(id)
	}
}

// resetFailures clears a source's failure count after a successful attempt
func (r *Router) resetFailures(id string) {
	r.mu.Lock()
	if entry, ok := r.pool[id]; ok {
		entry.failureCount = 0
	}
	r.mu.Unlock()
}

// scheduleRecheck arms a one-shot recheck independent of the periodic loop.
// The timer is owned by the router and stopped deterministically on shutdown.
func (r *Router) scheduleRecheck(id string) {
	delay := r.cfg.RecheckDelay()
	if delay <= 0 {
		delay = 5 * time.Second
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shuttingDown {
		return
	}
	if _, pending := r.recheckTimers[id]; pending {
		return
	}
	r.recheckTimers[id] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.recheckTimers, id)
		shuttingDown := r.shuttingDown
		r.mu.Unlock()
		if shuttingDown {
			return
		}
		r.checkSource(id)
	})
}

// safeHealthCheck shields the router from panicking health checks:
// a panic counts as unhealthy instead of propagating.
func safeHealthCheck(ctx context.Context, backend backends.Backend) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("health check panicked: %v", p)
		}
	}()
	return backend.HealthCheck(ctx)
}
