package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLimitResult(t *testing.T) {
	res, err := parseLimitResult([]interface{}{int64(1), int64(4), int64(60)}, 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.Equal(t, time.Minute, res.ResetIn)
	assert.Equal(t, 5, res.Limit)

	res, err = parseLimitResult([]interface{}{int64(0), int64(0), int64(12)}, 5)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	_, err = parseLimitResult("OK", 5)
	assert.Error(t, err)
	_, err = parseLimitResult([]interface{}{int64(1), "x", int64(1)}, 5)
	assert.Error(t, err)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	assert.Equal(t, 30, cfg.InitiateLimit)
	assert.Equal(t, time.Minute, cfg.InitiateWindow)
}
