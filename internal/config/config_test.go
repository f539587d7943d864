package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 3500*time.Millisecond, cfg.LLM.Timeouts.Gate)
	assert.Equal(t, 2, cfg.LLM.RetryMaxAttempts)
	assert.Equal(t, "GOOGLE", cfg.Ranking.DefaultMode)
	assert.Equal(t, 300*time.Second, cfg.Dedup.RunningMaxAge)
	assert.Equal(t, 60*time.Second, cfg.Push.TicketTTL)
	assert.Equal(t, 3600*time.Second, cfg.Places.GeocodeTTL)

	// Default() ships no JWT secret, so it validates only with anonymous access on.
	cfg.JWT.AllowAnonymous = true
	assert.NoError(t, cfg.Validate())
}

func TestDevDefault_ShortensRunningTTL(t *testing.T) {
	cfg := DevDefault()
	assert.Equal(t, 90*time.Second, cfg.Dedup.RunningMaxAge)
	assert.False(t, cfg.Redis.FailClosed)
}

func TestLoader_LoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("SEARCHCORE_JWT_ALLOW_ANONYMOUS", "true")
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server.HTTPPort, cfg.Server.HTTPPort)
}

func TestLoader_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("SEARCHCORE_JWT_ALLOW_ANONYMOUS", "true")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.HTTPPort)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o644))
	t.Setenv("SEARCHCORE_HTTP_PORT", "9100")
	t.Setenv("SEARCHCORE_JWT_ALLOW_ANONYMOUS", "true")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.HTTPPort)
}

func TestLoader_EnvDurationMillis(t *testing.T) {
	t.Setenv("SEARCHCORE_GATE_TIMEOUT_MS", "7000")
	t.Setenv("SEARCHCORE_JWT_ALLOW_ANONYMOUS", "true")
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.LLM.Timeouts.Gate)
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Server.HTTPPort = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsDisplayLargerThanPool(t *testing.T) {
	cfg := Default()
	cfg.Ranking.DisplayResultsSize = cfg.Ranking.CandidatePoolSize + 1
	assert.Error(t, cfg.Validate())
}
