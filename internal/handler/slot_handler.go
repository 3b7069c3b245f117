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

type slotService interface {
	Define(ctx context.Context, req dto.DefineSlotRequest) (*models.WeeklySlot, error)
	Revise(ctx context.Context, id string, req dto.ReviseSlotRequest) (*models.WeeklySlot, error)
	Remove(ctx context.Context, id string) error
	RemoveForDepartment(ctx context.Context, departmentID string) (int, error)
	Get(ctx context.Context, id string) (*models.WeeklySlot, error)
	ListByDepartment(ctx context.Context, departmentID string) ([]models.WeeklySlot, error)
	List(ctx context.Context, query dto.SlotQuery) (*models.SlotPage, bool, error)
	WeekSchedule(ctx context.Context, doctorID string) (*models.WeekSchedule, bool, error)
}

// SlotHandler exposes weekly slot template management.
type SlotHandler struct {
	slots slotService
}

// NewSlotHandler constructs a SlotHandler.
func NewSlotHandler(slots slotService) *SlotHandler {
	return &SlotHandler{slots: slots}
}

// List godoc
// @Summary List weekly slot templates
// @Tags Slots
// @Produce json
// @Param doctorId query string false "Doctor ID"
// @Param departmentId query string false "Department ID"
// @Param weekday query string false "Weekday 1-5 or name"
// @Param timeslot query string false "AM1..PM4"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	var query dto.SlotQuery
	if err := bindQuery(c, &query, "invalid slot query"); err != nil {
		response.Error(c, err)
		return
	}
	page, hit, err := h.slots.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, page.Items, &page.Pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a weekly slot template
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /slots/{id} [get]
func (h *SlotHandler) Get(c *gin.Context) {
	slot, err := h.slots.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Define godoc
// @Summary Define a weekly slot template
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body dto.DefineSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots [post]
func (h *SlotHandler) Define(c *gin.Context) {
	var req dto.DefineSlotRequest
	if err := bindJSON(c, &req, "invalid slot payload"); err != nil {
		response.Error(c, err)
		return
	}
	slot, err := h.slots.Define(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Revise godoc
// @Summary Revise a weekly slot template
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.ReviseSlotRequest true "Slot changes"
// @Success 200 {object} response.Envelope
// @Router /slots/{id} [put]
func (h *SlotHandler) Revise(c *gin.Context) {
	var req dto.ReviseSlotRequest
	if err := bindJSON(c, &req, "invalid slot payload"); err != nil {
		response.Error(c, err)
		return
	}
	slot, err := h.slots.Revise(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Remove godoc
// @Summary Remove a weekly slot template
// @Tags Slots
// @Param id path string true "Slot ID"
// @Success 204
// @Router /slots/{id} [delete]
func (h *SlotHandler) Remove(c *gin.Context) {
	if err := h.slots.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveForDepartment godoc
// @Summary Remove every slot template of a department
// @Tags Slots
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /departments/{id}/slots [delete]
func (h *SlotHandler) RemoveForDepartment(c *gin.Context) {
	removed, err := h.slots.RemoveForDepartment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RemovedCount{Removed: removed}, nil)
}

// ListForDepartment godoc
// @Summary List every slot template of a department
// @Tags Slots
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /departments/{id}/slots [get]
func (h *SlotHandler) ListForDepartment(c *gin.Context) {
	slots, err := h.slots.ListByDepartment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// WeekSchedule godoc
// @Summary Doctor's Monday-Friday slot grid
// @Tags Slots
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id}/week-schedule [get]
func (h *SlotHandler) WeekSchedule(c *gin.Context) {
	schedule, hit, err := h.slots.WeekSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, schedule, nil, middleware.ExtractMeta(c))
}
