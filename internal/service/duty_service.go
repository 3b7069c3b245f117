package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-booking-api/internal/dto"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

type dutyRepository interface {
	Create(ctx context.Context, duty *models.DutyAssignment) error
	Update(ctx context.Context, duty *models.DutyAssignment) error
	Delete(ctx context.Context, id string) error
	DeleteByDepartment(ctx context.Context, departmentID string) (int, error)
	FindByID(ctx context.Context, id string) (*models.DutyAssignment, error)
	FindByKey(ctx context.Context, key models.DutyKey) (*models.DutyAssignment, error)
	Query(ctx context.Context, filter models.DutyFilter) ([]models.DutyAssignment, error)
}

// DutyService maintains the weekend on-call roster. At most one doctor holds
// a department's shift on a weekend day.
type DutyService struct {
	duties    dutyRepository
	catalog   catalogReader
	audit     *AuditService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDutyService constructs a DutyService.
func NewDutyService(duties dutyRepository, catalog catalogReader, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *DutyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DutyService{
		duties:    duties,
		catalog:   catalog,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Assign places a doctor on a free department shift.
func (s *DutyService) Assign(ctx context.Context, req dto.AssignDutyRequest) (*models.DutyAssignment, error) {
	if err := validate(s.validator, req, "invalid duty payload"); err != nil {
		return nil, err
	}
	day, shift, err := parseDutyPosition(req.WeekendDay, req.Shift)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.FindDepartment(ctx, req.DepartmentID); err != nil {
		return nil, lookupError(err, "department")
	}
	if _, err := s.catalog.FindDoctor(ctx, req.DoctorID); err != nil {
		return nil, lookupError(err, "doctor")
	}

	duty := &models.DutyAssignment{
		DepartmentID: req.DepartmentID,
		DoctorID:     req.DoctorID,
		WeekendDay:   day,
		Shift:        shift,
		CreatedAt:    s.now(),
	}
	if err := s.ensureFreeKey(ctx, duty.Key(), ""); err != nil {
		return nil, err
	}
	if err := s.duties.Create(ctx, duty); err != nil {
		if isDuplicate(err) {
			return nil, dutyConflict(duty.Key())
		}
		return nil, internalError(err, "failed to assign duty")
	}

	s.afterChange(ctx, models.AuditActionDutyAssign, duty.ID, duty)
	return duty, nil
}

// Reassign edits an assignment. When the key is unchanged only the doctor is
// replaced in place.
func (s *DutyService) Reassign(ctx context.Context, id string, req dto.ReassignDutyRequest) (*models.DutyAssignment, error) {
	if err := validate(s.validator, req, "invalid duty payload"); err != nil {
		return nil, err
	}
	current, err := s.duties.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "duty assignment")
	}

	updated := *current
	if req.WeekendDay != nil {
		day, err := models.ParseWeekendDay(*req.WeekendDay)
		if err != nil {
			return nil, invalidArgument(err, "invalid weekend day")
		}
		updated.WeekendDay = day
	}
	if req.Shift != nil {
		shift, err := models.ParseDutyShift(*req.Shift)
		if err != nil {
			return nil, invalidArgument(err, "invalid shift")
		}
		updated.Shift = shift
	}
	if req.DepartmentID != nil && *req.DepartmentID != current.DepartmentID {
		if _, err := s.catalog.FindDepartment(ctx, *req.DepartmentID); err != nil {
			return nil, lookupError(err, "department")
		}
		updated.DepartmentID = *req.DepartmentID
	}
	if req.DoctorID != nil && *req.DoctorID != current.DoctorID {
		if _, err := s.catalog.FindDoctor(ctx, *req.DoctorID); err != nil {
			return nil, lookupError(err, "doctor")
		}
		updated.DoctorID = *req.DoctorID
	}

	if updated.Key() != current.Key() {
		if err := s.ensureFreeKey(ctx, updated.Key(), current.ID); err != nil {
			return nil, err
		}
	}
	updated.UpdatedAt = s.now()
	if err := s.duties.Update(ctx, &updated); err != nil {
		if isDuplicate(err) {
			return nil, dutyConflict(updated.Key())
		}
		return nil, lookupError(err, "duty assignment")
	}

	s.afterChange(ctx, models.AuditActionDutyReassign, updated.ID, map[string]interface{}{"before": current, "after": updated})
	return &updated, nil
}

// Unassign removes an assignment.
func (s *DutyService) Unassign(ctx context.Context, id string) error {
	if err := s.duties.Delete(ctx, id); err != nil {
		return lookupError(err, "duty assignment")
	}
	s.afterChange(ctx, models.AuditActionDutyUnassign, id, nil)
	return nil
}

// UnassignAllForDepartment clears a department's whole weekend roster.
func (s *DutyService) UnassignAllForDepartment(ctx context.Context, departmentID string) (int, error) {
	if _, err := s.catalog.FindDepartment(ctx, departmentID); err != nil {
		return 0, lookupError(err, "department")
	}
	removed, err := s.duties.DeleteByDepartment(ctx, departmentID)
	if err != nil {
		return 0, internalError(err, "failed to clear department roster")
	}
	s.afterChange(ctx, models.AuditActionDutyBulkUnassign, departmentID, map[string]int{"removed": removed})
	return removed, nil
}

// Query lists assignments; empty filters match everything.
func (s *DutyService) Query(ctx context.Context, q dto.DutyQuery) ([]models.DutyAssignment, error) {
	filter := models.DutyFilter{
		DepartmentID: strings.TrimSpace(q.DepartmentID),
		DoctorID:     strings.TrimSpace(q.DoctorID),
	}
	if q.WeekendDay != "" {
		day, err := models.ParseWeekendDay(q.WeekendDay)
		if err != nil {
			return nil, invalidArgument(err, "invalid weekend day filter")
		}
		filter.WeekendDay = day
	}
	if q.Shift != "" {
		shift, err := models.ParseDutyShift(q.Shift)
		if err != nil {
			return nil, invalidArgument(err, "invalid shift filter")
		}
		filter.Shift = shift
	}

	duties, err := s.duties.Query(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to query duty roster")
	}
	return duties, nil
}

func (s *DutyService) ensureFreeKey(ctx context.Context, key models.DutyKey, excludeID string) error {
	existing, err := s.duties.FindByKey(ctx, key)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return internalError(err, "failed to check duty uniqueness")
	}
	if existing.ID == excludeID {
		return nil
	}
	return dutyConflict(key)
}

func (s *DutyService) afterChange(ctx context.Context, action, resourceID string, details interface{}) {
	s.metrics.RecordScheduleChange("duty", action)
	actor, _ := models.ActorFromContext(ctx)
	s.audit.Record(ctx, actor, action, "duty_assignment", resourceID, details)
	s.logger.Info("duty roster changed", zap.String("action", action), zap.String("resource_id", resourceID), zap.String("actor_id", actor.ID))
}

func parseDutyPosition(day, shift string) (models.WeekendDay, models.DutyShift, error) {
	d, err := models.ParseWeekendDay(day)
	if err != nil {
		return "", "", invalidArgument(err, "invalid weekend day")
	}
	sh, err := models.ParseDutyShift(shift)
	if err != nil {
		return "", "", invalidArgument(err, "invalid shift")
	}
	return d, sh, nil
}

func dutyConflict(key models.DutyKey) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %s shift already assigned for department", key.WeekendDay, strings.ToLower(string(key.Shift))))
}
