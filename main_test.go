package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunReturnsConfigErrors(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("STATS_NON_FINITE", "drop")
	assert.ErrorContains(t, run(1, false), "stats config error")

	t.Setenv("STATS_NON_FINITE", "reject")
	t.Setenv("POSTGRES_DB", "")
	t.Setenv("DATABASE_URL", "")
	assert.ErrorContains(t, run(1, false), "database config error")

	t.Setenv("POSTGRES_DB", "bench")
	t.Setenv("REDIS_URL", "unix:///tmp/redis.sock")
	assert.ErrorContains(t, run(0, true), "redis config error")

	t.Setenv("LOG_LEVEL", "loud")
	assert.ErrorContains(t, run(1, false), "logger config error")
}
