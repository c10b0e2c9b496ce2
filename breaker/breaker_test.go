package breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/relaycore/pgdb/breaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail() (any, error) { return nil, errBoom }
func ok() (any, error)   { return "ok", nil }

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := breaker.New(breaker.Config{Name: "t", Threshold: 3, Timeout: 50 * time.Millisecond})

	for i := 0; i < 3; i++ {
		_, err := b.Execute(fail)
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Execute(ok)
	assert.ErrorIs(t, err, breaker.ErrOpen)
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	b := breaker.New(breaker.Config{Name: "t2", Threshold: 1, Timeout: 20 * time.Millisecond})

	_, err := b.Execute(fail)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, "open", b.State())

	time.Sleep(30 * time.Millisecond)

	res, err := b.Execute(ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := breaker.New(breaker.Config{Name: "t3", Threshold: 5})

	_, _ = b.Execute(fail)
	_, _ = b.Execute(fail)
	assert.Equal(t, uint32(2), b.Failures())

	_, err := b.Execute(ok)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), b.Failures())
	assert.Equal(t, "closed", b.State())
}
