// Package breaker wraps github.com/sony/gobreaker into the three-state
// (CLOSED/OPEN/HALF_OPEN) guard the cache coordinator puts in front of the
// cache store client. A tripped breaker never surfaces to the executor's
// caller — it only ever causes a cache operation to be skipped in favor of
// the database, per the module's fail-open guarantee.
package breaker

import (
	"time"

	"github.com/relaycore/pgdb/types"
	"github.com/sony/gobreaker"
)

const (
	DefaultThreshold = 5
	DefaultTimeout   = 30 * time.Second
)

// ErrOpen is returned by Execute when the breaker is open, and
// ErrTooManyInHalfOpen when the half-open probe slot is already taken;
// both are gobreaker's own sentinels, re-exported so callers don't need to
// import gobreaker.
var (
	ErrOpen             = gobreaker.ErrOpenState
	ErrTooManyInHalfOpen = gobreaker.ErrTooManyRequests
)

// Config configures a Breaker. Threshold is the number of *consecutive*
// failures that trips it; Timeout is how long it stays open before
// allowing one half-open probe.
type Config struct {
	Name      string
	Threshold uint32
	Timeout   time.Duration
	Logger    types.Logger // optional; defaults to discarding state-change events
}

// Breaker is a per-store circuit breaker.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New builds a Breaker from cfg, filling in DefaultThreshold/DefaultTimeout
// for zero values.
func New(cfg Config) *Breaker {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Threshold
		},
	}
	if cfg.Logger != nil {
		log := cfg.Logger
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Infow("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn if the breaker allows it, recording the outcome. Returns
// ErrOpen/ErrTooManyInHalfOpen without calling fn when it doesn't.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// State reports the current breaker state as one of "closed", "open",
// "half-open".
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Failures reports the current consecutive-failure count.
func (b *Breaker) Failures() uint32 {
	return b.cb.Counts().ConsecutiveFailures
}
