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

type slotRepository interface {
	Create(ctx context.Context, slot *models.WeeklySlot) error
	Update(ctx context.Context, slot *models.WeeklySlot) error
	Delete(ctx context.Context, id string) error
	DeleteByDepartment(ctx context.Context, departmentID string) (int, error)
	FindByID(ctx context.Context, id string) (*models.WeeklySlot, error)
	FindByKey(ctx context.Context, key models.SlotKey) (*models.WeeklySlot, error)
	List(ctx context.Context, filter models.SlotFilter) ([]models.WeeklySlot, int, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]models.WeeklySlot, error)
	Availability(ctx context.Context, doctorIDs []string, weekday models.Weekday) ([]models.SlotAvailability, error)
}

// SlotService manages doctors' weekly slot templates.
type SlotService struct {
	slots     slotRepository
	catalog   catalogReader
	cache     *CacheService
	audit     *AuditService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSlotService constructs a SlotService. cache, audit and metrics may be nil.
func NewSlotService(slots slotRepository, catalog catalogReader, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		slots:     slots,
		catalog:   catalog,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Define creates a new template for a doctor, weekday and timeslot.
func (s *SlotService) Define(ctx context.Context, req dto.DefineSlotRequest) (*models.WeeklySlot, error) {
	if err := validate(s.validator, req, "invalid slot payload"); err != nil {
		return nil, err
	}
	weekday, slot, err := parseSlotPosition(req.Weekday, req.TimeSlot)
	if err != nil {
		return nil, err
	}
	capacity := models.DefaultSlotCapacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}
	if capacity < 1 {
		return nil, invalidArgument(nil, "capacity must be at least 1")
	}

	doctor, err := s.activeDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	departmentID := strings.TrimSpace(req.DepartmentID)
	if departmentID == "" {
		departmentID = doctor.DepartmentID
	}
	if err := s.activeDepartment(ctx, departmentID); err != nil {
		return nil, err
	}

	template := &models.WeeklySlot{
		DoctorID:     doctor.ID,
		DepartmentID: departmentID,
		Weekday:      weekday,
		TimeSlot:     slot,
		Capacity:     capacity,
		CreatedAt:    s.now(),
	}
	if err := s.ensureFreeKey(ctx, template.Key(), ""); err != nil {
		return nil, err
	}
	if err := s.slots.Create(ctx, template); err != nil {
		if isDuplicate(err) {
			return nil, slotConflict(template.Key())
		}
		return nil, internalError(err, "failed to create slot")
	}

	s.afterChange(ctx, models.AuditActionSlotDefine, template.ID, template)
	return template, nil
}

// Revise updates a template. Uniqueness is re-checked only when the key moves.
func (s *SlotService) Revise(ctx context.Context, id string, req dto.ReviseSlotRequest) (*models.WeeklySlot, error) {
	if err := validate(s.validator, req, "invalid slot payload"); err != nil {
		return nil, err
	}
	current, err := s.slots.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "slot")
	}

	updated := *current
	if req.Weekday != nil {
		w := models.Weekday(*req.Weekday)
		if !w.Valid() {
			return nil, invalidArgument(nil, "weekday must be between 1 and 5")
		}
		updated.Weekday = w
	}
	if req.TimeSlot != nil {
		slot, err := models.ParseTimeSlot(*req.TimeSlot)
		if err != nil {
			return nil, invalidArgument(err, "invalid timeslot")
		}
		updated.TimeSlot = slot
	}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			return nil, invalidArgument(nil, "capacity must be at least 1")
		}
		updated.Capacity = *req.Capacity
	}
	if req.DoctorID != nil && *req.DoctorID != current.DoctorID {
		doctor, err := s.activeDoctor(ctx, *req.DoctorID)
		if err != nil {
			return nil, err
		}
		updated.DoctorID = doctor.ID
	}
	if req.DepartmentID != nil && *req.DepartmentID != current.DepartmentID {
		if err := s.activeDepartment(ctx, *req.DepartmentID); err != nil {
			return nil, err
		}
		updated.DepartmentID = *req.DepartmentID
	}

	if updated.Key() != current.Key() {
		if err := s.ensureFreeKey(ctx, updated.Key(), current.ID); err != nil {
			return nil, err
		}
	}
	updated.UpdatedAt = s.now()
	if err := s.slots.Update(ctx, &updated); err != nil {
		if isDuplicate(err) {
			return nil, slotConflict(updated.Key())
		}
		return nil, lookupError(err, "slot")
	}

	s.afterChange(ctx, models.AuditActionSlotRevise, updated.ID, map[string]interface{}{"before": current, "after": updated})
	return &updated, nil
}

// Remove deletes a template. Bookings referencing its key are left untouched.
func (s *SlotService) Remove(ctx context.Context, id string) error {
	if err := s.slots.Delete(ctx, id); err != nil {
		return lookupError(err, "slot")
	}
	s.afterChange(ctx, models.AuditActionSlotRemove, id, nil)
	return nil
}

// RemoveForDepartment deletes every template of a department.
func (s *SlotService) RemoveForDepartment(ctx context.Context, departmentID string) (int, error) {
	if _, err := s.catalog.FindDepartment(ctx, departmentID); err != nil {
		return 0, lookupError(err, "department")
	}
	removed, err := s.slots.DeleteByDepartment(ctx, departmentID)
	if err != nil {
		return 0, internalError(err, "failed to remove department slots")
	}
	s.afterChange(ctx, models.AuditActionSlotBulkRemove, departmentID, map[string]int{"removed": removed})
	return removed, nil
}

// Get returns one template.
func (s *SlotService) Get(ctx context.Context, id string) (*models.WeeklySlot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "slot")
	}
	return slot, nil
}

// List returns a page of templates matching the query. The bool reports a cache hit.
func (s *SlotService) List(ctx context.Context, query dto.SlotQuery) (*models.SlotPage, bool, error) {
	filter, err := slotFilterFromQuery(query)
	if err != nil {
		return nil, false, err
	}

	key := fmt.Sprintf("%slist:%s:%s:%d:%s:%d:%d", cacheSlotsPrefix, filter.DoctorID, filter.DepartmentID, int(filter.Weekday), filter.TimeSlot, filter.Page, filter.PageSize)
	epoch := s.cache.Epoch()
	var cached models.SlotPage
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	items, total, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, false, internalError(err, "failed to list slots")
	}
	page := &models.SlotPage{
		Items:      items,
		Pagination: models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total},
	}
	s.cache.Fill(ctx, key, page, epoch)
	return page, false, nil
}

// ListByDoctor returns all templates of one doctor.
func (s *SlotService) ListByDoctor(ctx context.Context, doctorID string) ([]models.WeeklySlot, error) {
	if _, err := s.catalog.FindDoctor(ctx, doctorID); err != nil {
		return nil, lookupError(err, "doctor")
	}
	slots, err := s.slots.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, internalError(err, "failed to list doctor slots")
	}
	return slots, nil
}

// ListByDepartment returns all templates of one department.
func (s *SlotService) ListByDepartment(ctx context.Context, departmentID string) ([]models.WeeklySlot, error) {
	if _, err := s.catalog.FindDepartment(ctx, departmentID); err != nil {
		return nil, lookupError(err, "department")
	}
	filter := models.SlotFilter{DepartmentID: departmentID, Page: 1, PageSize: models.MaxPageSize}
	var out []models.WeeklySlot
	for {
		items, total, err := s.slots.List(ctx, filter)
		if err != nil {
			return nil, internalError(err, "failed to list department slots")
		}
		out = append(out, items...)
		if len(items) == 0 || len(out) >= total {
			break
		}
		filter.Page++
	}
	if out == nil {
		out = []models.WeeklySlot{}
	}
	return out, nil
}

// WeekSchedule groups a doctor's templates by weekday. The bool reports a cache hit.
func (s *SlotService) WeekSchedule(ctx context.Context, doctorID string) (*models.WeekSchedule, bool, error) {
	key := cacheSlotsPrefix + "week:" + doctorID
	epoch := s.cache.Epoch()
	var cached models.WeekSchedule
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	slots, err := s.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, false, err
	}
	schedule := &models.WeekSchedule{DoctorID: doctorID, Days: make(map[models.Weekday][]models.WeeklySlot, len(models.Weekdays))}
	for _, day := range models.Weekdays {
		schedule.Days[day] = []models.WeeklySlot{}
	}
	for _, slot := range slots {
		schedule.Days[slot.Weekday] = append(schedule.Days[slot.Weekday], slot)
	}
	s.cache.Fill(ctx, key, schedule, epoch)
	return schedule, false, nil
}

func (s *SlotService) activeDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	doctor, err := s.catalog.FindDoctor(ctx, id)
	if err != nil {
		return nil, lookupError(err, "doctor")
	}
	if !doctor.Active {
		return nil, notFound("doctor not found")
	}
	return doctor, nil
}

func (s *SlotService) activeDepartment(ctx context.Context, id string) error {
	department, err := s.catalog.FindDepartment(ctx, id)
	if err != nil {
		return lookupError(err, "department")
	}
	if !department.Active {
		return notFound("department not found")
	}
	return nil
}

func (s *SlotService) ensureFreeKey(ctx context.Context, key models.SlotKey, excludeID string) error {
	existing, err := s.slots.FindByKey(ctx, key)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return internalError(err, "failed to check slot uniqueness")
	}
	if existing.ID == excludeID {
		return nil
	}
	return slotConflict(key)
}

func (s *SlotService) afterChange(ctx context.Context, action, resourceID string, details interface{}) {
	s.cache.Invalidate(ctx, cacheSlotsPrefix+"*", cacheTimetablePrefix+"*")
	s.metrics.RecordScheduleChange("slot", action)
	actor, _ := models.ActorFromContext(ctx)
	s.audit.Record(ctx, actor, action, "weekly_slot", resourceID, details)
	s.logger.Info("slot template changed", zap.String("action", action), zap.String("resource_id", resourceID), zap.String("actor_id", actor.ID))
}

func parseSlotPosition(weekday int, timeslot string) (models.Weekday, models.TimeSlot, error) {
	w := models.Weekday(weekday)
	if !w.Valid() {
		return 0, "", invalidArgument(nil, "weekday must be between 1 and 5")
	}
	slot, err := models.ParseTimeSlot(timeslot)
	if err != nil {
		return 0, "", invalidArgument(err, "invalid timeslot")
	}
	return w, slot, nil
}

func slotFilterFromQuery(q dto.SlotQuery) (models.SlotFilter, error) {
	filter := models.SlotFilter{
		DoctorID:     strings.TrimSpace(q.DoctorID),
		DepartmentID: strings.TrimSpace(q.DepartmentID),
	}
	if q.Weekday != "" {
		w, err := models.ParseWeekday(q.Weekday)
		if err != nil {
			return filter, invalidArgument(err, "invalid weekday filter")
		}
		filter.Weekday = w
	}
	if q.TimeSlot != "" {
		slot, err := models.ParseTimeSlot(q.TimeSlot)
		if err != nil {
			return filter, invalidArgument(err, "invalid timeslot filter")
		}
		filter.TimeSlot = slot
	}
	filter.Page, filter.PageSize, _ = models.Normalize(q.Page, q.PageSize)
	return filter, nil
}

func slotConflict(key models.SlotKey) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("doctor already has a slot on %s %s", key.Weekday, key.TimeSlot))
}
