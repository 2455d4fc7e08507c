package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 3*time.Second, cfg.TypingTTL)
	assert.Equal(t, 7*time.Minute, cfg.TombstoneWindow)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.False(t, cfg.LogDevelopment)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("STORE_DRIVER", DriverPostgres)
	t.Setenv("POSTGRES_DSN", "postgres://chat@localhost/chat?sslmode=disable")
	t.Setenv("TYPING_TTL", "5s")
	t.Setenv("SEND_BUFFER", "16")
	t.Setenv("LOG_DEVELOPMENT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.TypingTTL)
	assert.Equal(t, 16, cfg.SendBuffer)
	assert.True(t, cfg.LogDevelopment)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":  {"JWT_SECRET": ""},
		"unknown driver":  {"JWT_SECRET": "x", "STORE_DRIVER": "oracle"},
		"postgres no dsn": {"JWT_SECRET": "x", "STORE_DRIVER": DriverPostgres, "POSTGRES_DSN": ""},
		"zero buffer":     {"JWT_SECRET": "x", "SEND_BUFFER": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
