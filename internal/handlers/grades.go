package handlers

import (
	"net/http"
	"strconv"

	"github.com/wekesa/registrar/internal/app"
	"github.com/wekesa/registrar/internal/metrics"
	"github.com/wekesa/registrar/internal/models"
)

type GradeHandler struct {
	service *app.Service
}

func NewGradeHandler(service *app.Service) *GradeHandler {
	return &GradeHandler{service: service}
}

type markRequest struct {
	ComponentID   int64   `json:"component_id"`
	MarksObtained float64 `json:"marks_obtained"`
	EnteredBy     int64   `json:"entered_by"`
	Remarks       string  `json:"remarks"`
}

func (h *GradeHandler) HandleRecordMark(w http.ResponseWriter, r *http.Request) {
	h.handleMark(w, r, false)
}

// HandleUpdateMark is the explicit correction path; recording twice via
// POST is rejected as a conflict.
func (h *GradeHandler) HandleUpdateMark(w http.ResponseWriter, r *http.Request) {
	h.handleMark(w, r, true)
}

func (h *GradeHandler) handleMark(w http.ResponseWriter, r *http.Request, update bool) {
	enrollmentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req markRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var mark *models.StudentMark
	var err error
	if update {
		mark, err = h.service.Engine.UpdateMark(
			enrollmentID, req.ComponentID, req.MarksObtained, req.EnteredBy, req.Remarks)
	} else {
		mark, err = h.service.Engine.RecordMark(
			enrollmentID, req.ComponentID, req.MarksObtained, req.EnteredBy, req.Remarks)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if component, cerr := h.service.Store.GetComponent(req.ComponentID); cerr == nil && component != nil {
		metrics.MarksRecordedTotal.WithLabelValues(string(component.ComponentType)).Inc()
	}

	status := http.StatusCreated
	if update {
		status = http.StatusOK
	}
	writeJSON(w, status, mark)
}

func (h *GradeHandler) HandleComputeGrade(w http.ResponseWriter, r *http.Request) {
	enrollmentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	override := r.URL.Query().Get("override") == "true"

	grade, err := h.service.Engine.ComputeFinalGrade(enrollmentID, override)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.GradesComputedTotal.WithLabelValues(grade.Grade).Inc()
	writeJSON(w, http.StatusOK, grade)
}

func (h *GradeHandler) HandleApproveGrade(w http.ResponseWriter, r *http.Request) {
	enrollmentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		ApprovedBy int64 `json:"approved_by"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ApprovedBy <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "approved_by required"})
		return
	}

	grade, err := h.service.Engine.ApproveFinalGrade(enrollmentID, req.ApprovedBy)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, grade)
}

func (h *GradeHandler) HandleGPA(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var semesterID int64
	if raw := r.URL.Query().Get("semester"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid semester"})
			return
		}
		semesterID = parsed
	}

	gpa, err := h.service.Engine.ComputeGPA(studentID, semesterID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gpa)
}

// HandleAuditLogs lists recent audit entries; privileged roles only.
func (h *GradeHandler) HandleAuditLogs(w http.ResponseWriter, r *http.Request) {
	identity := h.service.Identify(r)
	if !identity.Role.Privileged() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	logs, err := h.service.Store.ListAuditLogs(
		r.URL.Query().Get("username"),
		models.AuditSeverity(r.URL.Query().Get("severity")),
		limit,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": logs})
}
