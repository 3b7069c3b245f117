package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-booking-api/internal/dto"
	"github.com/noah-isme/clinic-booking-api/internal/middleware"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/pkg/response"
)

type doctorFinder interface {
	DoctorsForCondition(ctx context.Context, conditionID string) ([]models.Doctor, error)
}

type timetableService interface {
	Timetable(ctx context.Context, conditionID, weekday string) ([]models.SlotAvailability, bool, error)
}

// ConditionHandler answers which doctors treat a condition and when.
type ConditionHandler struct {
	doctors   doctorFinder
	timetable timetableService
}

// NewConditionHandler constructs a ConditionHandler.
func NewConditionHandler(doctors doctorFinder, timetable timetableService) *ConditionHandler {
	return &ConditionHandler{doctors: doctors, timetable: timetable}
}

// Doctors godoc
// @Summary Active doctors able to treat a condition
// @Tags Conditions
// @Produce json
// @Param id path string true "Condition ID"
// @Success 200 {object} response.Envelope
// @Router /conditions/{id}/doctors [get]
func (h *ConditionHandler) Doctors(c *gin.Context) {
	doctors, err := h.doctors.DoctorsForCondition(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, nil)
}

// Timetable godoc
// @Summary Bookable slots for a condition with remaining capacity
// @Tags Conditions
// @Produce json
// @Param id path string true "Condition ID"
// @Param weekday query string false "Weekday 1-5 or name"
// @Success 200 {object} response.Envelope
// @Router /conditions/{id}/timetable [get]
func (h *ConditionHandler) Timetable(c *gin.Context) {
	var query dto.TimetableQuery
	if err := bindQuery(c, &query, "invalid timetable query"); err != nil {
		response.Error(c, err)
		return
	}
	rows, hit, err := h.timetable.Timetable(c.Request.Context(), c.Param("id"), query.Weekday)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, rows, nil, middleware.ExtractMeta(c))
}
