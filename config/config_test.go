package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "REQUEST_TIMEOUT", "RATE_LIMIT", "LOG_LEVEL", "GAP_STRATEGY", "FORCE_SINGLE_ROOT", "DROP_QUERY_KEYS", "DROP_TRACKING_PARAMS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10.0, cfg.RateLimit)
	assert.Equal(t, 20, cfg.RateBurst)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "adopt", cfg.GapStrategy)
	assert.Equal(t, "separate", cfg.Subdomains)
	assert.False(t, cfg.ForceSingleRoot)
	assert.Empty(t, cfg.DropQueryKeys)
	assert.False(t, cfg.DropTrackingParams)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "5")
	t.Setenv("RATE_LIMIT", "2.5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GAP_STRATEGY", "bridge")
	t.Setenv("FORCE_SINGLE_ROOT", "true")
	t.Setenv("KEEP_UNPARSABLE", "1")
	t.Setenv("DROP_QUERY_KEYS", "sessionid, ref ,")
	t.Setenv("DROP_TRACKING_PARAMS", "true")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "bridge", cfg.GapStrategy)
	assert.True(t, cfg.ForceSingleRoot)
	assert.True(t, cfg.KeepUnparsable)
	assert.Equal(t, []string{"sessionid", "ref"}, cfg.DropQueryKeys)
	assert.True(t, cfg.DropTrackingParams)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("FORCE_SINGLE_ROOT", "maybe")
	t.Setenv("LOG_LEVEL", "loud")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.ForceSingleRoot)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
}
