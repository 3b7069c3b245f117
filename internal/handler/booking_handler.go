package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-booking-api/internal/dto"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/pkg/response"
)

type bookingService interface {
	RequestBooking(ctx context.Context, actor models.Actor, req dto.RequestBookingRequest) (*models.Booking, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Booking, error)
	Cancel(ctx context.Context, actor models.Actor, id string) (*models.Booking, error)
	Complete(ctx context.Context, actor models.Actor, id string) (*models.Booking, error)
	ConfirmPayment(ctx context.Context, actor models.Actor, id string) (*models.Booking, error)
	ListForPatient(ctx context.Context, actor models.Actor, patientID string) ([]models.Booking, error)
	ListForDoctorAndWeekday(ctx context.Context, actor models.Actor, doctorID, weekday string) ([]models.DoctorDayEntry, error)
}

// BookingHandler exposes booking allocation and lifecycle endpoints.
type BookingHandler struct {
	bookings bookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings bookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// Request godoc
// @Summary Request a booking in a doctor's weekly slot
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.RequestBookingRequest true "Booking request"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Request(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RequestBookingRequest
	if err := bindJSON(c, &req, "invalid booking payload"); err != nil {
		response.Error(c, err)
		return
	}
	booking, err := h.bookings.RequestBooking(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Get godoc
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	h.respond(c, http.StatusOK, h.bookings.Get)
}

// Cancel godoc
// @Summary Cancel a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	h.respond(c, http.StatusOK, h.bookings.Cancel)
}

// Complete godoc
// @Summary Mark a booking completed
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/complete [post]
func (h *BookingHandler) Complete(c *gin.Context) {
	h.respond(c, http.StatusOK, h.bookings.Complete)
}

// ConfirmPayment godoc
// @Summary Confirm payment of a pending booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/confirm-payment [post]
func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	h.respond(c, http.StatusOK, h.bookings.ConfirmPayment)
}

// ListForPatient godoc
// @Summary List a patient's bookings
// @Tags Bookings
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/bookings [get]
func (h *BookingHandler) ListForPatient(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	bookings, err := h.bookings.ListForPatient(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, nil)
}

// ListForDoctorAndWeekday godoc
// @Summary A doctor's bookings on one weekday
// @Tags Bookings
// @Produce json
// @Param id path string true "Doctor ID"
// @Param weekday query string true "Weekday 1-5 or name"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id}/bookings [get]
func (h *BookingHandler) ListForDoctorAndWeekday(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.DoctorDayQuery
	if err := bindQuery(c, &query, "weekday is required"); err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.bookings.ListForDoctorAndWeekday(c.Request.Context(), actor, c.Param("id"), query.Weekday)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

func (h *BookingHandler) respond(c *gin.Context, status int, op func(context.Context, models.Actor, string) (*models.Booking, error)) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	booking, err := op(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, status, booking, nil)
}
