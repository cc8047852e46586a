package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "https://sys.callpotential.com/ui/v2/dashboard", cfg.DashboardURL)
	require.Equal(t, "CallPotential", cfg.CredentialService)
	require.Equal(t, 30, cfg.LoginTimeout)
	require.Equal(t, 20, cfg.TableWaitAttempts)
	require.Equal(t, 3, cfg.TableWaitInterval)
	require.True(t, cfg.Headless)
	require.False(t, cfg.AbortOnInsertError)
	require.Empty(t, cfg.RedisAddr)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NAV_TIMEOUT", "60")
	t.Setenv("ABORT_ON_INSERT_ERROR", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 60, cfg.NavTimeout)
	require.True(t, cfg.AbortOnInsertError)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
}
