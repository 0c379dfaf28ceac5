package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/wekesa/registrar/internal/grading"
	"github.com/wekesa/registrar/internal/security"
	"github.com/wekesa/registrar/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

// writeError maps domain errors onto HTTP statuses without leaking
// internals: the response carries the sentinel's message, the log the full
// chain.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, grading.ErrEnrollmentNotFound),
		errors.Is(err, grading.ErrComponentNotFound),
		errors.Is(err, grading.ErrStudentNotFound),
		errors.Is(err, grading.ErrNoMatchingGradeBand),
		errors.Is(err, grading.ErrNoGradedUnits):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, grading.ErrDuplicateMark),
		errors.Is(err, grading.ErrGradeAlreadyApproved),
		errors.Is(err, store.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, grading.ErrMarksOutOfRange),
		errors.Is(err, grading.ErrUnitMismatch),
		errors.Is(err, grading.ErrWeightSum),
		errors.Is(err, grading.ErrIncompleteAssessment),
		errors.Is(err, grading.ErrInvalidScheme):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, security.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, security.ErrRateLimited.Error()
	default:
		logger.Error.Printf("Unhandled error: %v", err)
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}
