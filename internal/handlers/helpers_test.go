package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wekesa/registrar/internal/grading"
	"github.com/wekesa/registrar/internal/security"
	"github.com/wekesa/registrar/internal/store"
)

func TestWriteError(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "enrollment not found", err: grading.ErrEnrollmentNotFound, wantStatus: http.StatusNotFound},
		{name: "no graded units", err: grading.ErrNoGradedUnits, wantStatus: http.StatusNotFound},
		{name: "duplicate mark", err: grading.ErrDuplicateMark, wantStatus: http.StatusConflict},
		{name: "already approved", err: grading.ErrGradeAlreadyApproved, wantStatus: http.StatusConflict},
		{name: "store conflict", err: store.ErrConflict, wantStatus: http.StatusConflict},
		{name: "marks out of range", err: grading.ErrMarksOutOfRange, wantStatus: http.StatusBadRequest},
		{name: "incomplete assessment", err: grading.ErrIncompleteAssessment, wantStatus: http.StatusBadRequest},
		{name: "invalid scheme", err: grading.ErrInvalidScheme, wantStatus: http.StatusBadRequest},
		{name: "rate limited", err: security.ErrRateLimited, wantStatus: http.StatusTooManyRequests},
		{name: "unknown error hides details", err: errors.New("pq: connection refused"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, fmt.Errorf("context: %w", tc.err))
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tc.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection refused")
			}
		})
	}
}
