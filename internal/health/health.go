// Package health implements the two probe tiers.
//
// Liveness answers "is the process scheduling requests" and touches
// nothing: no pool, no database, no locks. Readiness answers "can the
// process serve real traffic" by running every registered Checker with a
// short bound. A failed readiness check is a result, never an error: Ready
// always returns and never panics.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/koustreak/deckbuilder/internal/logger"
	"golang.org/x/sync/errgroup"
)

// DefaultDeepTimeout bounds each readiness check, including the pool
// acquisition it performs.
const DefaultDeepTimeout = 2 * time.Second

// Status values reported by the probes.
const (
	StatusLive      = "live"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
)

// Checker is one dependency inspected by the readiness probe.
type Checker interface {
	// Name identifies the dependency in the probe response.
	Name() string

	// Critical checks decide readiness; non-critical ones are reported only.
	Critical() bool

	// Check returns nil when the dependency is usable. It must honour ctx.
	Check(ctx context.Context) error
}

// Liveness is the shallow probe result.
type Liveness struct {
	Status string `json:"status"`
}

// CheckResult is the outcome of a single Checker.
type CheckResult struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Critical   bool    `json:"critical"`
	Message    string  `json:"message,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// OK reports whether the check passed.
func (r CheckResult) OK() bool {
	return r.Status == StatusOK
}

// Readiness is the deep probe result. DB mirrors the database check.
type Readiness struct {
	Status    string        `json:"status"`
	DB        bool          `json:"db"`
	Checks    []CheckResult `json:"checks"`
	Timestamp time.Time     `json:"timestamp"`
}

// Ready reports whether every critical check passed.
func (r Readiness) Ready() bool {
	return r.Status == StatusReady
}

// Prober runs the probes. It holds no per-call state, so one Prober is
// shared by all requests.
type Prober struct {
	checks  []Checker
	timeout time.Duration
	log     *logger.Logger
}

// NewProber returns a Prober running checks in registration order. A zero
// timeout selects DefaultDeepTimeout.
func NewProber(timeout time.Duration, log *logger.Logger, checks ...Checker) *Prober {
	if timeout <= 0 {
		timeout = DefaultDeepTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Prober{
		checks:  checks,
		timeout: timeout,
		log:     log.With().Str("component", "health").Logger(),
	}
}

// Timeout returns the per-check bound.
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Live is the shallow check. It returns in constant time whatever the state
// of the dependencies.
func (p *Prober) Live() Liveness {
	return Liveness{Status: StatusLive}
}

// Ready runs every check concurrently, each bounded by the probe timeout,
// and aggregates the results.
func (p *Prober) Ready(ctx context.Context) Readiness {
	results := make([]CheckResult, len(p.checks))

	var g errgroup.Group
	for i, c := range p.checks {
		i, c := i, c
		g.Go(func() error {
			results[i] = p.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	status := StatusReady
	db := false
	for _, r := range results {
		if r.Critical && !r.OK() {
			status = StatusDegraded
		}
		if r.Name == DatabaseCheckName {
			db = r.OK()
		}
	}

	if status != StatusReady {
		p.log.WarnWith("readiness degraded", nil, map[string]any{"checks": results})
	}

	return Readiness{
		Status:    status,
		DB:        db,
		Checks:    results,
		Timestamp: time.Now().UTC(),
	}
}

// run executes one check. A check that ignores ctx is abandoned when the
// timeout fires, and a panicking check is reported as unhealthy.
func (p *Prober) run(ctx context.Context, c Checker) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("check panicked: %v", r)
			}
		}()
		errCh <- c.Check(ctx)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = fmt.Errorf("check timed out after %s", p.timeout)
	}

	res := CheckResult{
		Name:       c.Name(),
		Status:     StatusOK,
		Critical:   c.Critical(),
		DurationMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
	}
	return res
}
