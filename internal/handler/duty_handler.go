package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-booking-api/internal/dto"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/pkg/response"
)

type dutyService interface {
	Assign(ctx context.Context, req dto.AssignDutyRequest) (*models.DutyAssignment, error)
	Reassign(ctx context.Context, id string, req dto.ReassignDutyRequest) (*models.DutyAssignment, error)
	Unassign(ctx context.Context, id string) error
	UnassignAllForDepartment(ctx context.Context, departmentID string) (int, error)
	Query(ctx context.Context, q dto.DutyQuery) ([]models.DutyAssignment, error)
}

// DutyHandler exposes the weekend on-call roster.
type DutyHandler struct {
	duties dutyService
}

// NewDutyHandler constructs a DutyHandler.
func NewDutyHandler(duties dutyService) *DutyHandler {
	return &DutyHandler{duties: duties}
}

// Query godoc
// @Summary Query the weekend duty roster
// @Tags Duties
// @Produce json
// @Param departmentId query string false "Department ID"
// @Param doctorId query string false "Doctor ID"
// @Param weekendDay query string false "SATURDAY or SUNDAY"
// @Param shift query string false "MORNING, AFTERNOON or NIGHT"
// @Success 200 {object} response.Envelope
// @Router /duties [get]
func (h *DutyHandler) Query(c *gin.Context) {
	var query dto.DutyQuery
	if err := bindQuery(c, &query, "invalid duty query"); err != nil {
		response.Error(c, err)
		return
	}
	duties, err := h.duties.Query(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, duties, nil)
}

// Assign godoc
// @Summary Assign a doctor to a weekend shift
// @Tags Duties
// @Accept json
// @Produce json
// @Param payload body dto.AssignDutyRequest true "Duty payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /duties [post]
func (h *DutyHandler) Assign(c *gin.Context) {
	var req dto.AssignDutyRequest
	if err := bindJSON(c, &req, "invalid duty payload"); err != nil {
		response.Error(c, err)
		return
	}
	duty, err := h.duties.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, duty)
}

// Reassign godoc
// @Summary Edit a duty assignment
// @Tags Duties
// @Accept json
// @Produce json
// @Param id path string true "Duty assignment ID"
// @Param payload body dto.ReassignDutyRequest true "Duty changes"
// @Success 200 {object} response.Envelope
// @Router /duties/{id} [put]
func (h *DutyHandler) Reassign(c *gin.Context) {
	var req dto.ReassignDutyRequest
	if err := bindJSON(c, &req, "invalid duty payload"); err != nil {
		response.Error(c, err)
		return
	}
	duty, err := h.duties.Reassign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, duty, nil)
}

// Unassign godoc
// @Summary Remove a duty assignment
// @Tags Duties
// @Param id path string true "Duty assignment ID"
// @Success 204
// @Router /duties/{id} [delete]
func (h *DutyHandler) Unassign(c *gin.Context) {
	if err := h.duties.Unassign(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UnassignAllForDepartment godoc
// @Summary Clear a department's weekend roster
// @Tags Duties
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /departments/{id}/duties [delete]
func (h *DutyHandler) UnassignAllForDepartment(c *gin.Context) {
	removed, err := h.duties.UnassignAllForDepartment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RemovedCount{Removed: removed}, nil)
}
