package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SPLIT_SEED", "")
	t.Setenv("TEST_RATIO", "")
	t.Setenv("POSTGRES_ENABLED", "")

	cfg := Load()

	assert.Equal(t, int64(42), cfg.SplitSeed)
	assert.Equal(t, 0.2, cfg.TestRatio)
	assert.Equal(t, 200, cfg.NEstimators)
	assert.Equal(t, 20, cfg.MaxDepth)
	assert.False(t, cfg.PostgresEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SPLIT_SEED", "7")
	t.Setenv("TEST_RATIO", "0.25")
	t.Setenv("POSTGRES_ENABLED", "true")
	t.Setenv("N_ESTIMATORS", "not-a-number")

	cfg := Load()

	assert.Equal(t, int64(7), cfg.SplitSeed)
	assert.Equal(t, 0.25, cfg.TestRatio)
	assert.True(t, cfg.PostgresEnabled)
	assert.Equal(t, 200, cfg.NEstimators)
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "db",
		PostgresPort:     "5433",
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresDB:       "d",
		PostgresSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", cfg.DSN())
}
