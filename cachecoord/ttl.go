package cachecoord

import (
	"time"

	"github.com/relaycore/pgdb/types"
)

// TTL computes the cache entry lifetime for f, following the per-kind
// policy and clamping to cfg.MaxTTL.
func (c *Coordinator) TTL(f *types.Filter) time.Duration {
	var ttl time.Duration
	switch f.Exec {
	case types.ExecCount, types.ExecScalar:
		ttl = 2 * c.cfg.DefaultTTL
	case types.ExecFind, types.ExecRead:
		if f.Take <= shortTakeWindow {
			ttl = 3 * c.cfg.DefaultTTL
		} else {
			ttl = c.cfg.DefaultTTL
		}
	case types.ExecList:
		ttl = c.cfg.DefaultTTL / 2
		if ttl < minListTTL {
			ttl = minListTTL
		}
	default:
		ttl = c.cfg.DefaultTTL
	}
	if ttl > c.cfg.MaxTTL {
		ttl = c.cfg.MaxTTL
	}
	return ttl
}
