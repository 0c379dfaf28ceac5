package app

import (
	"fmt"
	"net/http"

	"github.com/wekesa/registrar/internal/grading"
	"github.com/wekesa/registrar/internal/security"
	"github.com/wekesa/registrar/internal/store"
)

// Service wires the store, cache, grading engine and security pipeline
// together for the HTTP layer.
type Service struct {
	Config  *Config
	Store   store.AcademicStore
	Cache   *security.Cache
	Guard   *security.Guard
	Limiter *security.Limiter
	Engine  *grading.Engine
}

// NewService builds a service from a config file. The notify hook receives
// CRITICAL security events; pass nil when no delivery channel is bound.
func NewService(configPath string, notify security.NotifyFunc) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	cache, err := security.NewCache(config.Redis.Enabled, config.Redis.URL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}

	guard := security.NewGuard(st, cache, config.Server.MaintenanceMode, config.Security.AuditEnabled)
	limiter := security.NewLimiter(
		st,
		cache,
		config.Security.MaxLoginAttempts,
		config.Window(),
		config.Lockout(),
		notify,
	)
	engine := grading.NewEngine(st, config.Grading.MinPassingGradePoint)

	return &Service{
		Config:  config,
		Store:   st,
		Cache:   cache,
		Guard:   guard,
		Limiter: limiter,
		Engine:  engine,
	}, nil
}

// Identify resolves the caller from the session header against the session
// store. Anything unknown or inactive is treated as anonymous; the pipeline
// never trusts role claims off the wire.
func (s *Service) Identify(r *http.Request) security.Identity {
	key := r.Header.Get(s.Config.Server.SessionHeader)
	if key == "" {
		return security.Identity{}
	}

	sess, err := s.Store.GetSession(key)
	if err != nil || sess == nil || !sess.IsActive {
		return security.Identity{}
	}

	user, err := s.Store.GetUserByUsername(sess.Username)
	if err != nil || user == nil || !user.IsActive {
		return security.Identity{}
	}

	return security.Identity{
		Username:   user.Username,
		Role:       user.Role,
		SessionKey: key,
	}
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
