package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-booking-api/internal/dto"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

type dutyServiceStub struct {
	err       error
	lastQuery dto.DutyQuery
	lastID    string
	lastEdit  dto.ReassignDutyRequest
}

func (s *dutyServiceStub) Assign(_ context.Context, req dto.AssignDutyRequest) (*models.DutyAssignment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.DutyAssignment{ID: "duty-1", DoctorID: req.DoctorID}, nil
}

func (s *dutyServiceStub) Reassign(_ context.Context, id string, req dto.ReassignDutyRequest) (*models.DutyAssignment, error) {
	s.lastID, s.lastEdit = id, req
	return &models.DutyAssignment{ID: id}, s.err
}

func (s *dutyServiceStub) Unassign(_ context.Context, id string) error {
	s.lastID = id
	return s.err
}

func (s *dutyServiceStub) UnassignAllForDepartment(context.Context, string) (int, error) {
	return 0, s.err
}

func (s *dutyServiceStub) Query(_ context.Context, q dto.DutyQuery) ([]models.DutyAssignment, error) {
	s.lastQuery = q
	return []models.DutyAssignment{}, s.err
}

func TestDutyHandlerQueryBindsFilters(t *testing.T) {
	stub := &dutyServiceStub{}
	h := NewDutyHandler(stub)

	c, w := testContext(http.MethodGet, "/duties?departmentId=dep-1&weekendDay=SATURDAY&shift=MORNING", "", nil)
	h.Query(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.DutyQuery{DepartmentID: "dep-1", WeekendDay: "SATURDAY", Shift: "MORNING"}, stub.lastQuery)
}

func TestDutyHandlerAssignConflict(t *testing.T) {
	h := NewDutyHandler(&dutyServiceStub{err: appErrors.ErrConflict})

	c, w := testContext(http.MethodPost, "/duties", `{"departmentId":"dep-1","doctorId":"D3","weekendDay":"SATURDAY","shift":"MORNING"}`, nil)
	h.Assign(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDutyHandlerReassign(t *testing.T) {
	stub := &dutyServiceStub{}
	h := NewDutyHandler(stub)

	c, w := testContext(http.MethodPut, "/duties/duty-1", `{"doctorId":"D3"}`, nil)
	c.Params = append(c.Params, ginParam("id", "duty-1"))
	h.Reassign(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duty-1", stub.lastID)
	require.NotNil(t, stub.lastEdit.DoctorID)
	assert.Equal(t, "D3", *stub.lastEdit.DoctorID)
}

func TestDutyHandlerUnassign(t *testing.T) {
	stub := &dutyServiceStub{}
	h := NewDutyHandler(stub)

	w := serveRoute(http.MethodDelete, "/duties/:id", "/duties/duty-1", h.Unassign)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "duty-1", stub.lastID)

	stub.err = appErrors.ErrNotFound
	w = serveRoute(http.MethodDelete, "/duties/:id", "/duties/missing", h.Unassign)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
