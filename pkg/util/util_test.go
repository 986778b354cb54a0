package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDurationEnv(t *testing.T) {
	t.Setenv("TEST_DURATION", "250ms")
	assert.Equal(t, 250*time.Millisecond, GetDurationEnv("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "12")
	assert.Equal(t, 12*time.Second, GetDurationEnv("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "nonsense")
	assert.Equal(t, time.Second, GetDurationEnv("TEST_DURATION", time.Second))

	assert.Equal(t, time.Minute, GetDurationEnv("TEST_DURATION_UNSET", time.Minute))
}

func TestTypedEnv(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BOOL", "true")
	assert.Equal(t, int64(42), GetIntEnv("TEST_INT"))
	assert.True(t, GetBoolEnv("TEST_BOOL"))
	assert.Equal(t, "fallback", GetEnvOr("TEST_STRING_UNSET", "fallback"))
}

func TestPullToRefreshPadsToMinimum(t *testing.T) {
	start := time.Now()
	sentinel := errors.New("boom")
	err := PullToRefresh(context.Background(), 50*time.Millisecond, func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPullToRefreshCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	require.NoError(t, PullToRefresh(ctx, time.Hour, func(ctx context.Context) error { return nil }))
	assert.Less(t, time.Since(start), time.Second)
}

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	require.NoError(t, db.Exec("SELECT 1").Error)
}
