package security

import (
	"context"
	"fmt"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/wekesa/registrar/internal/metrics"
	"github.com/wekesa/registrar/internal/models"
	"github.com/wekesa/registrar/internal/store"
)

// NotifyFunc receives CRITICAL security events. The web layer binds it to
// email/SMS delivery; a nil hook is fine.
type NotifyFunc func(models.SecurityEvent)

// Limiter tracks failed logins per IP over a sliding window and blocks the
// address once the threshold is reached. The authoritative count is a
// store query over login_attempts within now-window; the cache only
// short-circuits repeat lookups, a cache outage never changes a decision.
type Limiter struct {
	store  store.AcademicStore
	cache  *Cache
	notify NotifyFunc

	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration

	now func() time.Time
}

func NewLimiter(s store.AcademicStore, cache *Cache, maxAttempts int, window, lockout time.Duration, notify NotifyFunc) *Limiter {
	return &Limiter{
		store:       s,
		cache:       cache,
		notify:      notify,
		MaxAttempts: maxAttempts,
		Window:      window,
		Lockout:     lockout,
		now:         time.Now,
	}
}

// failureCount prefers the cached fast-path counter and falls back to the
// sliding-window store count, caching the result.
func (l *Limiter) failureCount(ctx context.Context, ip string) (int, error) {
	if cached, ok := l.cache.FailureCount(ctx, ip); ok {
		return int(cached), nil
	}
	count, err := l.store.CountRecentFailures(ip, l.now().Add(-l.Window))
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RegisterFailure records a failed authentication and, at the threshold,
// blocks the address for the lockout duration and emits a CRITICAL
// security event. Returns whether the address is now blocked.
func (l *Limiter) RegisterFailure(ctx context.Context, username, ip, userAgent, reason string) (bool, error) {
	attempt := &models.LoginAttempt{
		Username:    username,
		IPAddress:   ip,
		Success:     false,
		FailReason:  reason,
		UserAgent:   userAgent,
		AttemptedAt: l.now().Unix(),
	}
	if err := l.store.RecordLoginAttempt(attempt); err != nil {
		return false, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()

	if err := l.cache.IncrFailures(ctx, ip, l.Window); err != nil {
		logger.Debug.Printf("Failure counter cache unavailable for %s: %v", ip, err)
	}

	count, err := l.store.CountRecentFailures(ip, l.now().Add(-l.Window))
	if err != nil {
		return false, err
	}
	if count < l.MaxAttempts {
		return false, nil
	}

	until := l.now().Add(l.Lockout)
	block := &models.BlockedIP{
		IPAddress:    ip,
		Reason:       fmt.Sprintf("%d failed logins within %s", count, l.Window),
		BlockedUntil: until.Unix(),
		IsActive:     true,
	}
	if err := l.store.UpsertBlock(block); err != nil {
		return false, err
	}
	if err := l.cache.SetBlockVerdict(ctx, ip, true); err != nil {
		logger.Debug.Printf("Block verdict cache unavailable for %s: %v", ip, err)
	}

	l.emitBruteForceEvent(username, ip, count)
	logger.Info.Printf("Blocked %s until %s after %d failed logins", ip, until.UTC().Format(time.RFC3339), count)

	return true, nil
}

// RegisterSuccess records a successful authentication and clears the
// address's fast-path failure counter.
func (l *Limiter) RegisterSuccess(ctx context.Context, username, ip, userAgent string) error {
	attempt := &models.LoginAttempt{
		Username:    username,
		IPAddress:   ip,
		Success:     true,
		UserAgent:   userAgent,
		AttemptedAt: l.now().Unix(),
	}
	if err := l.store.RecordLoginAttempt(attempt); err != nil {
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	if err := l.cache.ClearFailures(ctx, ip); err != nil {
		logger.Debug.Printf("Failed to clear failure counter for %s: %v", ip, err)
	}
	return nil
}

// Allow rejects authentication attempts from addresses already at the
// threshold, before any credential check happens. The lockout, not the
// window, bounds how long an address stays rejected: once its block has
// lapsed the address may try again even while old failures are still
// inside the sliding window. A fresh failure re-blocks it immediately.
func (l *Limiter) Allow(ctx context.Context, ip string) error {
	count, err := l.failureCount(ctx, ip)
	if err != nil {
		return err
	}
	if count < l.MaxAttempts {
		return nil
	}

	block, err := l.store.GetActiveBlock(ip)
	if err != nil {
		return err
	}
	if block == nil || block.Expired(l.now()) {
		return nil
	}

	metrics.RequestsBlockedTotal.WithLabelValues("rate_limit").Inc()
	return fmt.Errorf("%s: %w", ip, ErrRateLimited)
}

func (l *Limiter) emitBruteForceEvent(username, ip string, count int) {
	event := models.SecurityEvent{
		EventType:   "BRUTE_FORCE",
		RiskLevel:   string(models.SeverityCritical),
		Description: fmt.Sprintf("%d failed login attempts for %q", count, username),
		Username:    username,
		IPAddress:   ip,
		AutoBlocked: true,
		CreatedAt:   l.now().Unix(),
	}
	if err := l.store.CreateSecurityEvent(&event); err != nil {
		logger.Error.Printf("Failed to persist security event: %v", err)
	}
	metrics.SecurityEventsTotal.WithLabelValues(event.RiskLevel).Inc()

	if l.notify != nil {
		defer func() {
			if r := recover(); r != nil {
				logger.Error.Printf("Security notification hook panicked: %v", r)
			}
		}()
		l.notify(event)
	}
}
