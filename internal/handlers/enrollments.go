package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/wekesa/registrar/internal/app"
	"github.com/wekesa/registrar/internal/grading"
	"github.com/wekesa/registrar/internal/models"
)

type EnrollmentHandler struct {
	service *app.Service
}

func NewEnrollmentHandler(service *app.Service) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

func (h *EnrollmentHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID  int64 `json:"student_id"`
		UnitID     int64 `json:"unit_id"`
		SemesterID int64 `json:"semester_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	enrollment := &models.UnitEnrollment{
		StudentID:  req.StudentID,
		UnitID:     req.UnitID,
		SemesterID: req.SemesterID,
		Status:     models.StatusEnrolled,
		EnrolledAt: time.Now().Unix(),
	}
	if err := enrollment.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.service.Store.CreateEnrollment(enrollment); err != nil {
		writeError(w, err)
		return
	}

	logger.Debug.Printf("Enrolled student %d in unit %d", req.StudentID, req.UnitID)
	writeJSON(w, http.StatusCreated, enrollment)
}

func (h *EnrollmentHandler) HandleDrop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Engine.DropEnrollment(id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusDropped)})
}

func (h *EnrollmentHandler) HandleListComponents(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit code required"})
		return
	}

	unit, err := h.service.Store.GetUnitByCode(code)
	if err != nil {
		writeError(w, err)
		return
	}
	if unit == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unit not found"})
		return
	}

	components, err := h.service.Store.ListUnitComponents(unit.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"unit":       unit,
		"components": components,
	})
}

// HandleAddComponent registers an assessment component, refusing any that
// would push the unit's combined weight past 100.
func (h *EnrollmentHandler) HandleAddComponent(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	unit, err := h.service.Store.GetUnitByCode(code)
	if err != nil {
		writeError(w, err)
		return
	}
	if unit == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unit not found"})
		return
	}

	var component models.AssessmentComponent
	if !decodeBody(w, r, &component) {
		return
	}
	component.UnitID = unit.ID
	if err := component.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	existing, err := h.service.Store.ListUnitComponents(unit.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	var weight float64
	for _, c := range existing {
		weight += c.Weight
	}
	if weight+component.Weight > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "combined component weight would exceed 100",
		})
		return
	}

	if err := h.service.Store.CreateAssessmentComponent(&component); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, component)
}

// HandleReplaceScheme swaps a programme's grading scheme after validating
// that the bands partition [0,100].
func (h *EnrollmentHandler) HandleReplaceScheme(w http.ResponseWriter, r *http.Request) {
	programmeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Bands []models.GradeBand `json:"bands"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := grading.ValidateScheme(req.Bands); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Store.ReplaceGradingScheme(programmeID, req.Bands); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"bands": len(req.Bands)})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
