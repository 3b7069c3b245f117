package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-booking-api/internal/dto"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
	"github.com/noah-isme/clinic-booking-api/pkg/export"
	"github.com/noah-isme/clinic-booking-api/pkg/response"
)

var daySheetHeaders = []string{"Timeslot", "Time", "Patient", "Condition", "Status", "Booked At"}

// ExportDoctorDay godoc
// @Summary Printable day sheet of a doctor's bookings
// @Tags Bookings
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Doctor ID"
// @Param weekday query string true "Weekday 1-5 or name"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /doctors/{id}/bookings/export [get]
func (h *BookingHandler) ExportDoctorDay(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.DoctorDayExportQuery
	if err := bindQuery(c, &query, "weekday is required"); err != nil {
		response.Error(c, err)
		return
	}
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status, err.Error()))
		return
	}

	doctorID := c.Param("id")
	entries, err := h.bookings.ListForDoctorAndWeekday(c.Request.Context(), actor, doctorID, query.Weekday)
	if err != nil {
		response.Error(c, err)
		return
	}

	day := query.Weekday
	if w, err := models.ParseWeekday(query.Weekday); err == nil {
		day = w.String()
	}
	body, err := export.Render(format, daySheet(doctorID, day, entries))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Attachment(c, fmt.Sprintf("doctor-%s-%s.%s", doctorID, day, format), format.ContentType(), body)
}

func daySheet(doctorID, day string, entries []models.DoctorDayEntry) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("Doctor %s - %s", doctorID, day),
		Headers: daySheetHeaders,
		Rows:    make([][]string, 0, len(entries)),
		Struck:  map[int]bool{},
	}
	for i, e := range entries {
		table.Rows = append(table.Rows, []string{
			string(e.TimeSlot),
			e.TimeSlot.Label(),
			e.PatientName,
			e.ConditionName,
			string(e.Status),
			e.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
		if e.Cancelled {
			table.Struck[i] = true
		}
	}
	return table
}
