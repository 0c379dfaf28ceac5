package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/wekesa/registrar/internal/metrics"
)

func TestWithDuration_LabelsByRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/students/{id}/gpa", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := withDuration(mux)

	for _, path := range []string{
		"/api/v1/students/1/gpa",
		"/api/v1/students/2/gpa",
		"/api/v1/students/31337/gpa",
	} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// one series for the route, not one per student id
	count := testutil.CollectAndCount(metrics.APIRequestDuration, "portal_api_request_duration_seconds")
	assert.Equal(t, 1, count)
}
