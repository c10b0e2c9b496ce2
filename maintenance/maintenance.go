// Package maintenance runs the periodic housekeeping the builder and
// registry don't do for themselves: clearing the field-name memoization
// table and reporting any connection whose breaker isn't CLOSED.
package maintenance

import (
	"context"
	"time"

	"github.com/relaycore/pgdb/builder"
	"github.com/relaycore/pgdb/registry"
	"github.com/relaycore/pgdb/types"
)

// DefaultInterval is how often Run sweeps by default.
const DefaultInterval = 5 * time.Minute

// Loop clears the field-name memoization table and logs diagnostics for
// any non-CLOSED breaker, every interval, until ctx is done.
type Loop struct {
	Registry *registry.Registry
	Names    []string
	Interval time.Duration
	Log      types.Logger
}

// Run blocks until ctx is cancelled, ticking every l.Interval (DefaultInterval
// if unset).
func (l *Loop) Run(ctx context.Context) {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Loop) sweep() {
	before := builder.FieldCacheLen()
	builder.ClearFieldCache()
	l.logInfo("field cache cleared", "entries", before)

	for _, name := range l.Names {
		health, ok := l.Registry.Health(name)
		if !ok || !health.Cached {
			continue
		}
		if health.Breaker != "closed" {
			l.logWarn("circuit breaker not closed", "connection", name, "state", health.Breaker, "failures", health.Fails)
		}
	}
}

func (l *Loop) logInfo(msg string, kv ...any) {
	if l.Log != nil {
		l.Log.Infow(msg, kv...)
	}
}

func (l *Loop) logWarn(msg string, kv ...any) {
	if l.Log != nil {
		l.Log.Warnw(msg, kv...)
	}
}
