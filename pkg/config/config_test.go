package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "random", cfg.Scheduler.TieBreak)
	assert.Equal(t, "annealing", cfg.Scheduler.Refinement)
	assert.Equal(t, 100, cfg.Scheduler.MaxIterations)
	assert.Equal(t, 0.95, cfg.Scheduler.CoolingRate)
	assert.Equal(t, 25, cfg.Scheduler.DefaultSectionMax)
	assert.Equal(t, 2*time.Second, cfg.Worker.RetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadReadsEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCHEDULER_SEED", "99")
	t.Setenv("SCHEDULER_REFINEMENT", "none")
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("CACHE_TTL", "bogus")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(99), cfg.Scheduler.Seed)
	assert.Equal(t, "none", cfg.Scheduler.Refinement)
	assert.Equal(t, 4, cfg.Worker.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
