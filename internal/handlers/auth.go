package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/wekesa/registrar/internal/app"
	"github.com/wekesa/registrar/internal/models"
	"github.com/wekesa/registrar/internal/security"
)

const sessionKeyPrefix = "sess-"

type AuthHandler struct {
	service *app.Service
}

func NewAuthHandler(service *app.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

func newSessionKey() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate session key: %w", err)
	}
	return sessionKeyPrefix + hex.EncodeToString(raw), nil
}

// HandleLogin checks the brute-force limiter before touching credentials,
// records every attempt, and opens a session on success. Failed and
// throttled attempts get the same generic message.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ip := security.ClientIP(r)
	userAgent := r.UserAgent()

	if err := h.service.Limiter.Allow(r.Context(), ip); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.service.Store.GetUserByUsername(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	authenticated := false
	if user != nil && user.IsActive {
		authenticated = bcrypt.CompareHashAndPassword(
			[]byte(user.PasswordHash), []byte(req.Password)) == nil
	}

	if !authenticated {
		blocked, err := h.service.Limiter.RegisterFailure(
			r.Context(), req.Username, ip, userAgent, "invalid credentials")
		if err != nil {
			logger.Error.Printf("Failed to record login failure: %v", err)
		}
		if blocked {
			logger.Info.Printf("Login from %s now blocked", ip)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	if err := h.service.Limiter.RegisterSuccess(r.Context(), user.Username, ip, userAgent); err != nil {
		logger.Error.Printf("Failed to record login success: %v", err)
	}

	key, err := newSessionKey()
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().Unix()
	fp := security.ParseUserAgent(userAgent)
	sess := &models.UserSession{
		SessionKey:   key,
		Username:     user.Username,
		IPAddress:    ip,
		UserAgent:    userAgent,
		DeviceType:   fp.DeviceType,
		Browser:      fp.Browser,
		OS:           fp.OS,
		IsActive:     true,
		StartedAt:    now,
		LastActivity: now,
	}
	if err := h.service.Store.UpsertSession(sess); err != nil {
		writeError(w, err)
		return
	}

	h.audit(user, ip, r, "LOGIN", "User logged in successfully")

	writeJSON(w, http.StatusOK, map[string]string{
		"session_key": key,
		"role":        string(user.Role),
	})
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	identity := h.service.Identify(r)
	if identity.Anonymous() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no active session"})
		return
	}

	h.service.Guard.EndSession(identity.SessionKey)

	user := &models.User{Username: identity.Username, Role: identity.Role}
	h.audit(user, security.ClientIP(r), r, "LOGOUT", "User logged out")

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// audit writes login/logout entries at their call sites; failures never
// reach the caller.
func (h *AuthHandler) audit(user *models.User, ip string, r *http.Request, action, description string) {
	entry := &models.AuditLog{
		Username:    user.Username,
		UserRole:    string(user.Role),
		ActionType:  action,
		Description: description,
		IPAddress:   ip,
		RequestPath: r.URL.Path,
		Method:      r.Method,
		Severity:    models.SeverityLow,
		StatusCode:  http.StatusOK,
		CreatedAt:   time.Now().Unix(),
	}
	if err := h.service.Store.CreateAuditLog(entry); err != nil {
		logger.Error.Printf("Failed to write %s audit entry: %v", action, err)
	}
}
