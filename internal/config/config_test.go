package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Engine.HistoryTimeout)
	assert.Equal(t, 30*time.Second, cfg.Engine.RestrictionCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.Engine.RestrictionDuration)
	assert.NotEmpty(t, cfg.DatabaseURL)
}

func TestLoad_CustomDurations(t *testing.T) {
	os.Clearenv()
	os.Setenv("HISTORY_TIMEOUT", "5s")
	os.Setenv("RESTRICTION_CACHE_TTL", "45s")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Engine.HistoryTimeout)
	assert.Equal(t, 45*time.Second, cfg.Engine.RestrictionCacheTTL)
}

func TestLoad_BareSecondsAccepted(t *testing.T) {
	os.Clearenv()
	os.Setenv("HISTORY_TIMEOUT", "4")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, cfg.Engine.HistoryTimeout)
}

func TestLoad_CacheTTLCapEnforced(t *testing.T) {
	os.Clearenv()
	os.Setenv("RESTRICTION_CACHE_TTL", "2m")
	defer os.Clearenv()

	_, err := Load()
	assert.Error(t, err, "restriction staleness must stay under a minute")
}

func TestDefaultThresholds_MatchProductLimits(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, 180, th.MaxSessionMinutes)
	assert.Equal(t, 5, th.MinSessionMinutes)
	assert.Equal(t, 480, th.MaxDailyMinutes)
	assert.Equal(t, 20, th.MaxSessionsPerDay)
	assert.InDelta(t, 10.0, th.MaxQuestionsPerMinute, 0.001)
	assert.InDelta(t, 95.0, th.MaxAccuracyPercent, 0.001)
	assert.InDelta(t, 10.0, th.MinAccuracyPercent, 0.001)
	assert.Equal(t, 5*time.Minute, th.MinSessionGap)
}
