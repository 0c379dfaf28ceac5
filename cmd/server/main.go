package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/wekesa/registrar/internal/app"
	"github.com/wekesa/registrar/internal/handlers"
	"github.com/wekesa/registrar/internal/metrics"
	"github.com/wekesa/registrar/internal/models"
)

const sessionSweepInterval = 5 * time.Minute

func main() {
	service, err := app.NewService("config.toml", func(event models.SecurityEvent) {
		logger.Error.Printf("SECURITY ALERT [%s] %s from %s", event.RiskLevel, event.EventType, event.IPAddress)
	})
	if err != nil {
		logger.Error.Fatalf("Failed to start service: %v", err)
	}
	defer service.Close()

	authHandler := handlers.NewAuthHandler(service)
	enrollmentHandler := handlers.NewEnrollmentHandler(service)
	gradeHandler := handlers.NewGradeHandler(service)

	api := http.NewServeMux()

	api.HandleFunc("POST /api/v1/auth/login", authHandler.HandleLogin)
	api.HandleFunc("POST /api/v1/auth/logout", authHandler.HandleLogout)

	api.HandleFunc("POST /api/v1/enrollments", enrollmentHandler.HandleEnroll)
	api.HandleFunc("POST /api/v1/enrollments/{id}/drop", enrollmentHandler.HandleDrop)
	api.HandleFunc("POST /api/v1/enrollments/{id}/marks", gradeHandler.HandleRecordMark)
	api.HandleFunc("PUT /api/v1/enrollments/{id}/marks", gradeHandler.HandleUpdateMark)
	api.HandleFunc("POST /api/v1/enrollments/{id}/grade", gradeHandler.HandleComputeGrade)
	api.HandleFunc("POST /api/v1/enrollments/{id}/grade/approve", gradeHandler.HandleApproveGrade)

	api.HandleFunc("GET /api/v1/students/{id}/gpa", gradeHandler.HandleGPA)

	api.HandleFunc("GET /api/v1/units/{code}/components", enrollmentHandler.HandleListComponents)
	api.HandleFunc("POST /api/v1/units/{code}/components", enrollmentHandler.HandleAddComponent)
	api.HandleFunc("PUT /api/v1/programmes/{id}/grading-scheme", enrollmentHandler.HandleReplaceScheme)

	api.HandleFunc("GET /api/v1/audit-logs", gradeHandler.HandleAuditLogs)

	guarded := service.Guard.Middleware(service.Identify)(withDuration(api))

	http.Handle("/api/v1/", guarded)
	http.Handle("/metrics", promhttp.Handler())

	go sweepSessions(service)

	logger.Info.Printf("Starting registrar server on %s", service.Config.Server.Port)
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Registrar server failed: %v", err)
	}
}

func sweepSessions(service *app.Service) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		service.Guard.ExpireIdleSessions(service.Config.SessionIdleTimeout())
	}
}

type durationRecorder struct {
	http.ResponseWriter
	status int
}

func (w *durationRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withDuration times requests into the duration histogram. The path label is
// the matched route pattern, not the raw URL, so {id} segments do not mint a
// new series per entity.
func withDuration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &durationRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.APIRequestDuration.WithLabelValues(
			route,
			r.Method,
			strconv.Itoa(rec.status),
		).Observe(time.Since(start).Seconds())
	})
}
