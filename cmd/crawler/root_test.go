package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edu-crawler/internal/config"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestRootCmd_UnknownSite(t *testing.T) {
	err := execute(t, "universities")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMalformedSeed)
}

func TestRootCmd_BadRateLimit(t *testing.T) {
	err := execute(t, "colleges", "--rate-limit", "soon")
	require.Error(t, err)

	var seedErr *config.SeedError
	require.ErrorAs(t, err, &seedErr)
	assert.Equal(t, "rate-limit", seedErr.Field)
}

func TestRootCmd_PostgresWithoutURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	err := execute(t, "exams", "--sink", "postgres")

	var seedErr *config.SeedError
	require.ErrorAs(t, err, &seedErr)
	assert.Equal(t, "DB_URL", seedErr.Field)
}

func TestRootCmd_TooManyArgs(t *testing.T) {
	assert.Error(t, execute(t, "colleges", "exams"))
}

func TestRootCmd_RunIDNeedsRedis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	err := execute(t, "courses", "--run-id", "nightly")

	var seedErr *config.SeedError
	require.ErrorAs(t, err, &seedErr)
	assert.Equal(t, "RUN_ID", seedErr.Field)
}
