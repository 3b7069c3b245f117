package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-booking-api/internal/dto"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

func TestDutyScenarioSaturdayMorning(t *testing.T) {
	c := newClinic(t, 0)
	ctx := adminCtx()

	original, err := c.duties.Assign(ctx, dto.AssignDutyRequest{DepartmentID: "dep-1", DoctorID: "D2", WeekendDay: "SATURDAY", Shift: "MORNING"})
	require.NoError(t, err)

	_, err = c.duties.Assign(ctx, dto.AssignDutyRequest{DepartmentID: "dep-1", DoctorID: "D3", WeekendDay: "saturday", Shift: "morning"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	reassigned, err := c.duties.Reassign(ctx, original.ID, dto.ReassignDutyRequest{DoctorID: strPtr("D3")})
	require.NoError(t, err)
	assert.Equal(t, original.ID, reassigned.ID)
	assert.Equal(t, "D3", reassigned.DoctorID)

	roster, err := c.duties.Query(ctx, dto.DutyQuery{DepartmentID: "dep-1"})
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "D3", roster[0].DoctorID)
}

func TestAssignDutyValidation(t *testing.T) {
	c := newClinic(t, 0)
	ctx := adminCtx()

	tests := []struct {
		name string
		req  dto.AssignDutyRequest
		want *appErrors.Error
	}{
		{"weekday", dto.AssignDutyRequest{DepartmentID: "dep-1", DoctorID: "D1", WeekendDay: "MONDAY", Shift: "NIGHT"}, appErrors.ErrInvalidArgument},
		{"shift", dto.AssignDutyRequest{DepartmentID: "dep-1", DoctorID: "D1", WeekendDay: "SUNDAY", Shift: "EVENING"}, appErrors.ErrInvalidArgument},
		{"missing field", dto.AssignDutyRequest{DoctorID: "D1", WeekendDay: "SUNDAY", Shift: "NIGHT"}, appErrors.ErrInvalidArgument},
		{"department", dto.AssignDutyRequest{DepartmentID: "dep-404", DoctorID: "D1", WeekendDay: "SUNDAY", Shift: "NIGHT"}, appErrors.ErrNotFound},
		{"doctor", dto.AssignDutyRequest{DepartmentID: "dep-1", DoctorID: "D404", WeekendDay: "SUNDAY", Shift: "NIGHT"}, appErrors.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.duties.Assign(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestReassignDutyToTakenKeyConflicts(t *testing.T) {
	c := newClinic(t, 0)
	ctx := adminCtx()

	night, err := c.duties.Assign(ctx, dto.AssignDutyRequest{DepartmentID: "dep-1", DoctorID: "D1", WeekendDay: "SUNDAY", Shift: "NIGHT"})
	require.NoError(t, err)
	_, err = c.duties.Assign(ctx, dto.AssignDutyRequest{DepartmentID: "dep-1", DoctorID: "D2", WeekendDay: "SUNDAY", Shift: "MORNING"})
	require.NoError(t, err)

	_, err = c.duties.Reassign(ctx, night.ID, dto.ReassignDutyRequest{Shift: strPtr("MORNING")})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	moved, err := c.duties.Reassign(ctx, night.ID, dto.ReassignDutyRequest{WeekendDay: strPtr("6")})
	require.NoError(t, err)
	assert.Equal(t, models.Saturday, moved.WeekendDay)

	_, err = c.duties.Reassign(ctx, "missing", dto.ReassignDutyRequest{Shift: strPtr("NIGHT")})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestQueryAndClearRoster(t *testing.T) {
	c := newClinic(t, 0)
	ctx := adminCtx()
	for _, req := range []dto.AssignDutyRequest{
		{DepartmentID: "dep-1", DoctorID: "D1", WeekendDay: "SATURDAY", Shift: "MORNING"},
		{DepartmentID: "dep-1", DoctorID: "D2", WeekendDay: "SUNDAY", Shift: "MORNING"},
		{DepartmentID: "dep-2", DoctorID: "D3", WeekendDay: "SATURDAY", Shift: "NIGHT"},
	} {
		_, err := c.duties.Assign(ctx, req)
		require.NoError(t, err)
	}

	saturday, err := c.duties.Query(ctx, dto.DutyQuery{WeekendDay: "saturday"})
	require.NoError(t, err)
	assert.Len(t, saturday, 2)

	mornings, err := c.duties.Query(ctx, dto.DutyQuery{DepartmentID: "dep-1", Shift: "MORNING"})
	require.NoError(t, err)
	assert.Len(t, mornings, 2)

	_, err = c.duties.Query(ctx, dto.DutyQuery{Shift: "late"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgument)

	removed, err := c.duties.UnassignAllForDepartment(ctx, "dep-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	all, err := c.duties.Query(ctx, dto.DutyQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NoError(t, c.duties.Unassign(ctx, all[0].ID))
	assert.ErrorIs(t, c.duties.Unassign(ctx, all[0].ID), appErrors.ErrNotFound)
}
