package config_test

import (
	"testing"
	"time"

	"github.com/relaycore/pgdb/config"
	"github.com/stretchr/testify/assert"
)

func TestNew_FillsDefaults(t *testing.T) {
	c := config.New()
	assert.Equal(t, 10, c.Database.PoolSize)
	assert.Equal(t, "127.0.0.1", c.Cache.Host)
	assert.Equal(t, 6379, c.Cache.Port)
	assert.Equal(t, "pgcache:", c.Cache.KeyPrefix)
	assert.Equal(t, 300*time.Second, c.Cache.DefaultTTL)
	assert.Equal(t, 3600*time.Second, c.Cache.MaxTTL)
	assert.Equal(t, 100*time.Millisecond, c.Cache.RetryDelay)
	assert.Equal(t, 30*time.Second, c.Cache.CircuitBreakerTimeout)
	assert.Equal(t, uint32(5), c.Cache.CircuitBreakerThreshold)
}
