package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/wekesa/registrar/internal/metrics"
	"github.com/wekesa/registrar/internal/models"
	"github.com/wekesa/registrar/internal/store"
)

const sessionThrottleInterval = 30 * time.Second

// Identity is what the guard knows about the caller, resolved by the web
// layer. Zero value means anonymous.
type Identity struct {
	Username   string
	Role       models.UserRole
	SessionKey string
}

func (id Identity) Anonymous() bool {
	return id.Username == ""
}

// IdentifyFunc resolves the caller from a request, typically from a session
// header. The guard never parses credentials itself.
type IdentifyFunc func(*http.Request) Identity

// Guard runs the per-request security pipeline: IP block check,
// maintenance gate, session tracking, and post-response audit logging.
// Every stage takes its inputs explicitly; there is no ambient request
// state.
type Guard struct {
	store store.AcademicStore
	cache *Cache

	MaintenanceMode bool
	AuditEnabled    bool

	now func() time.Time
}

func NewGuard(s store.AcademicStore, cache *Cache, maintenanceMode, auditEnabled bool) *Guard {
	return &Guard{
		store:           s,
		cache:           cache,
		MaintenanceMode: maintenanceMode,
		AuditEnabled:    auditEnabled,
		now:             time.Now,
	}
}

// CheckIP rejects requests from actively blocked addresses. An expired
// block is deactivated in passing and the request allowed through. The
// block reason is only surfaced to privileged callers.
func (g *Guard) CheckIP(ctx context.Context, ip string, privileged bool) error {
	if verdict, err := g.cache.BlockVerdict(ctx, ip); err == nil && verdict != nil && !*verdict {
		return nil
	}

	block, err := g.store.GetActiveBlock(ip)
	if err != nil {
		return fmt.Errorf("failed to check ip block: %w", err)
	}
	if block == nil {
		g.cacheVerdict(ctx, ip, false)
		return nil
	}

	if block.Expired(g.now()) {
		if err := g.store.DeactivateBlock(ip); err != nil {
			logger.Error.Printf("Failed to deactivate expired block for %s: %v", ip, err)
		}
		g.cacheVerdict(ctx, ip, false)
		return nil
	}

	g.cacheVerdict(ctx, ip, true)
	metrics.RequestsBlockedTotal.WithLabelValues("ip_block").Inc()
	if privileged {
		return fmt.Errorf("%w: %s", ErrIPBlocked, block.Reason)
	}
	return ErrIPBlocked
}

func (g *Guard) cacheVerdict(ctx context.Context, ip string, blocked bool) {
	if err := g.cache.SetBlockVerdict(ctx, ip, blocked); err != nil {
		logger.Debug.Printf("Block verdict cache unavailable for %s: %v", ip, err)
	}
}

// CheckMaintenance gates non-privileged traffic while maintenance mode is
// on. Login stays reachable so admins can get in.
func (g *Guard) CheckMaintenance(identity Identity, path string) error {
	if !g.MaintenanceMode {
		return nil
	}
	if identity.Role.Privileged() {
		return nil
	}
	if strings.HasSuffix(path, "/auth/login") {
		return nil
	}
	metrics.RequestsBlockedTotal.WithLabelValues("maintenance").Inc()
	return ErrMaintenance
}

// TrackSession refreshes the caller's session row: last activity, device
// fingerprint, active flag. Throttled per session key; last-writer-wins is
// fine for activity timestamps.
func (g *Guard) TrackSession(ctx context.Context, identity Identity, ip, userAgent string) {
	if identity.Anonymous() || identity.SessionKey == "" {
		return
	}
	if !g.cache.ThrottleSession(ctx, identity.SessionKey, sessionThrottleInterval) {
		return
	}

	now := g.now().Unix()
	fp := ParseUserAgent(userAgent)
	sess := &models.UserSession{
		SessionKey:   identity.SessionKey,
		Username:     identity.Username,
		IPAddress:    ip,
		UserAgent:    userAgent,
		DeviceType:   fp.DeviceType,
		Browser:      fp.Browser,
		OS:           fp.OS,
		IsActive:     true,
		StartedAt:    now,
		LastActivity: now,
	}
	if err := g.store.UpsertSession(sess); err != nil {
		// Session bookkeeping must never break the request.
		logger.Error.Printf("Failed to track session %s: %v", identity.SessionKey, err)
	}
}

// Audit writes a best-effort audit entry for a mutating request. Failures
// are logged and swallowed; the response already happened.
func (g *Guard) Audit(identity Identity, r *http.Request, status int) {
	if !g.AuditEnabled {
		return
	}

	var action string
	var severity models.AuditSeverity
	switch r.Method {
	case http.MethodDelete:
		action, severity = "DELETE", models.SeverityHigh
	case http.MethodPost:
		action, severity = "CREATE", models.SeverityMedium
	case http.MethodPut, http.MethodPatch:
		action, severity = "UPDATE", models.SeverityMedium
	default:
		return
	}

	entry := &models.AuditLog{
		Username:    identity.Username,
		UserRole:    string(identity.Role),
		ActionType:  action,
		Description: fmt.Sprintf("%s request to %s", r.Method, r.URL.Path),
		IPAddress:   ClientIP(r),
		RequestPath: requestPath(r),
		Method:      r.Method,
		Severity:    severity,
		StatusCode:  status,
		CreatedAt:   g.now().Unix(),
	}
	if err := g.store.CreateAuditLog(entry); err != nil {
		logger.Error.Printf("Failed to write audit log for %s %s: %v", r.Method, r.URL.Path, err)
	}
}

// EndSession deactivates a session on logout.
func (g *Guard) EndSession(sessionKey string) {
	if sessionKey == "" {
		return
	}
	if err := g.store.EndSession(sessionKey, g.now()); err != nil {
		logger.Error.Printf("Failed to end session %s: %v", sessionKey, err)
	}
}

// ExpireIdleSessions deactivates sessions idle past the timeout; meant to
// be called periodically by the server.
func (g *Guard) ExpireIdleSessions(idleTimeout time.Duration) {
	n, err := g.store.ExpireIdleSessions(g.now().Add(-idleTimeout))
	if err != nil {
		logger.Error.Printf("Failed to expire idle sessions: %v", err)
		return
	}
	if n > 0 {
		logger.Debug.Printf("Expired %d idle sessions", n)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware chains the pipeline stages around a handler, short-circuiting
// on the first rejection. Audit logging runs after the response and only
// for mutating verbs.
func (g *Guard) Middleware(identify IdentifyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			identity := identify(r)
			privileged := identity.Role.Privileged()

			if err := g.CheckIP(r.Context(), ip, privileged); err != nil {
				http.Error(w, err.Error(), http.StatusForbidden)
				return
			}

			if err := g.CheckMaintenance(identity, r.URL.Path); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}

			g.TrackSession(r.Context(), identity, ip, r.UserAgent())

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			g.Audit(identity, r, rec.status)
		})
	}
}

// ClientIP extracts the originating address, preferring proxy headers over
// the socket peer.
func ClientIP(r *http.Request) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP", "CF-Connecting-IP"} {
		if val := r.Header.Get(header); val != "" {
			// X-Forwarded-For lists client first, proxies after.
			if idx := strings.IndexByte(val, ','); idx != -1 {
				val = val[:idx]
			}
			return strings.TrimSpace(val)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestPath(r *http.Request) string {
	if r.URL.RawQuery != "" {
		return r.URL.Path + "?" + r.URL.RawQuery
	}
	return r.URL.Path
}
