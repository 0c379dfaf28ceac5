package security

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wekesa/registrar/internal/models"
	"github.com/wekesa/registrar/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	st, err := sqlite.NewSQLiteStore(dsn, "../../migrations")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func disabledCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := NewCache(false, "")
	require.NoError(t, err)
	return cache
}

func TestLimiter_BlocksAtThreshold(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var notified []models.SecurityEvent
	limiter := NewLimiter(st, disabledCache(t), 5, time.Hour, 30*time.Minute, func(ev models.SecurityEvent) {
		notified = append(notified, ev)
	})

	ip := "203.0.113.7"

	for i := 0; i < 4; i++ {
		blocked, err := limiter.RegisterFailure(ctx, "jdoe", ip, "curl/8.0", "invalid credentials")
		require.NoError(t, err)
		assert.False(t, blocked)
	}
	assert.NoError(t, limiter.Allow(ctx, ip))

	blocked, err := limiter.RegisterFailure(ctx, "jdoe", ip, "curl/8.0", "invalid credentials")
	require.NoError(t, err)
	assert.True(t, blocked)

	assert.ErrorIs(t, limiter.Allow(ctx, ip), ErrRateLimited)

	block, err := st.GetActiveBlock(ip)
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.True(t, block.IsActive)
	assert.Greater(t, block.BlockedUntil, time.Now().Unix())

	require.Len(t, notified, 1)
	assert.Equal(t, "BRUTE_FORCE", notified[0].EventType)
	assert.Equal(t, string(models.SeverityCritical), notified[0].RiskLevel)
	assert.True(t, notified[0].AutoBlocked)

	var events int
	require.NoError(t, st.DB.Get(&events, `SELECT COUNT(*) FROM security_events WHERE ip_address = ?`, ip))
	assert.Equal(t, 1, events)
}

func TestLimiter_WindowSlides(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	limiter := NewLimiter(st, disabledCache(t), 5, time.Hour, 30*time.Minute, nil)

	base := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	ip := "203.0.113.8"
	for i := 0; i < 5; i++ {
		_, err := limiter.RegisterFailure(ctx, "jdoe", ip, "", "invalid credentials")
		require.NoError(t, err)
	}
	assert.ErrorIs(t, limiter.Allow(ctx, ip), ErrRateLimited)

	// an hour later the attempts have aged out of the window
	limiter.now = func() time.Time { return base.Add(time.Hour + time.Minute) }
	assert.NoError(t, limiter.Allow(ctx, ip))
}

func TestLimiter_ExpiredBlockStandsDown(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// lockout deliberately shorter than the window: the lockout, not the
	// window, decides how long the address stays rejected
	limiter := NewLimiter(st, disabledCache(t), 5, time.Hour, 30*time.Minute, nil)

	base := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	ip := "203.0.113.12"
	for i := 0; i < 5; i++ {
		_, err := limiter.RegisterFailure(ctx, "jdoe", ip, "", "invalid credentials")
		require.NoError(t, err)
	}
	assert.ErrorIs(t, limiter.Allow(ctx, ip), ErrRateLimited)

	// 35 minutes in: the block has lapsed but the failures are still
	// inside the sliding window
	limiter.now = func() time.Time { return base.Add(35 * time.Minute) }
	assert.NoError(t, limiter.Allow(ctx, ip))

	t.Run("fresh failure re-blocks immediately", func(t *testing.T) {
		blocked, err := limiter.RegisterFailure(ctx, "jdoe", ip, "", "invalid credentials")
		require.NoError(t, err)
		assert.True(t, blocked)
		assert.ErrorIs(t, limiter.Allow(ctx, ip), ErrRateLimited)
	})
}

func TestLimiter_RepeatOffenderExtendsBlock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	limiter := NewLimiter(st, disabledCache(t), 2, time.Hour, 30*time.Minute, nil)

	ip := "203.0.113.9"
	for i := 0; i < 3; i++ {
		_, err := limiter.RegisterFailure(ctx, "jdoe", ip, "", "invalid credentials")
		require.NoError(t, err)
	}

	var rows int
	require.NoError(t, st.DB.Get(&rows, `SELECT COUNT(*) FROM blocked_ips WHERE ip_address = ?`, ip))
	assert.Equal(t, 1, rows)
}

func TestLimiter_NotifyPanicIsContained(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	limiter := NewLimiter(st, disabledCache(t), 1, time.Hour, 30*time.Minute, func(models.SecurityEvent) {
		panic("smtp gateway down")
	})

	blocked, err := limiter.RegisterFailure(ctx, "jdoe", "203.0.113.10", "", "invalid credentials")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestLimiter_RegisterSuccess(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	limiter := NewLimiter(st, disabledCache(t), 5, time.Hour, 30*time.Minute, nil)

	require.NoError(t, limiter.RegisterSuccess(ctx, "jdoe", "203.0.113.11", "curl/8.0"))

	var count int
	require.NoError(t, st.DB.Get(&count,
		`SELECT COUNT(*) FROM login_attempts WHERE username = ? AND success = 1`, "jdoe"))
	assert.Equal(t, 1, count)
}
