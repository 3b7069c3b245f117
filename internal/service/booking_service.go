package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-booking-api/internal/dto"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
	"github.com/noah-isme/clinic-booking-api/pkg/logger"
)

const tracerName = "github.com/noah-isme/clinic-booking-api/internal/service"

type bookingRepository interface {
	Allocate(ctx context.Context, booking *models.Booking) error
	Transition(ctx context.Context, id string, from, to models.BookingStatus, at time.Time) (*models.Booking, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	ListByDoctorAndWeekday(ctx context.Context, doctorID string, weekday models.Weekday) ([]models.DoctorDayEntry, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.Booking, error)
}

type slotLookup interface {
	FindByKey(ctx context.Context, key models.SlotKey) (*models.WeeklySlot, error)
	Availability(ctx context.Context, doctorIDs []string, weekday models.Weekday) ([]models.SlotAvailability, error)
}

// BookingOption customises a BookingService.
type BookingOption func(*BookingService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) BookingOption {
	return func(s *BookingService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the clinic timezone used to place appointments in time.
func WithLocation(loc *time.Location) BookingOption {
	return func(s *BookingService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithBookingCache enables timetable caching.
func WithBookingCache(cache *CacheService) BookingOption {
	return func(s *BookingService) { s.cache = cache }
}

// WithBookingAudit records booking writes in the audit trail.
func WithBookingAudit(audit *AuditService) BookingOption {
	return func(s *BookingService) { s.audit = audit }
}

// WithBookingMetrics counts booking outcomes and transitions.
func WithBookingMetrics(metrics *MetricsService) BookingOption {
	return func(s *BookingService) { s.metrics = metrics }
}

// WithTracer replaces the globally registered tracer.
func WithTracer(tracer trace.Tracer) BookingOption {
	return func(s *BookingService) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// BookingService admits bookings into weekly slots and drives their lifecycle.
type BookingService struct {
	bookings    bookingRepository
	slots       slotLookup
	catalog     catalogReader
	eligibility *EligibilityService
	cache       *CacheService
	audit       *AuditService
	metrics     *MetricsService
	tracer      trace.Tracer
	validator   *validator.Validate
	logger      *zap.Logger
	loc         *time.Location
	now         func() time.Time
}

// NewBookingService constructs a BookingService.
func NewBookingService(bookings bookingRepository, slots slotLookup, catalog catalogReader, validate *validator.Validate, log *zap.Logger, opts ...BookingOption) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &BookingService{
		bookings:  bookings,
		slots:     slots,
		catalog:   catalog,
		validator: validate,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		loc:       time.UTC,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.eligibility = NewEligibilityService(catalog, log)
	return s
}

// RequestBooking admits a booking for the requested slot or rejects it.
// Patients book for themselves; administrators book on behalf of a patient.
func (s *BookingService) RequestBooking(ctx context.Context, actor models.Actor, req dto.RequestBookingRequest) (_ *models.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.request", trace.WithAttributes(
		attribute.String("doctor.id", req.DoctorID),
		attribute.Int("slot.weekday", req.Weekday),
		attribute.String("slot.timeslot", req.TimeSlot),
	))
	log := logger.WithRequest(ctx, s.logger).With(
		zap.String("actor_id", actor.ID),
		zap.String("doctor_id", req.DoctorID),
		zap.Int("weekday", req.Weekday),
		zap.String("timeslot", req.TimeSlot),
	)
	defer func() {
		s.metrics.RecordBooking(bookingOutcome(err))
		endSpan(span, err)
		if err != nil {
			log.Info("booking rejected", zap.String("reason", appErrors.FromError(err).Code))
		}
	}()

	patientID, err := s.bookingPatient(actor, req.PatientID)
	if err != nil {
		return nil, err
	}
	if err := validate(s.validator, req, "invalid booking payload"); err != nil {
		return nil, err
	}
	weekday, timeslot, err := parseSlotPosition(req.Weekday, req.TimeSlot)
	if err != nil {
		return nil, err
	}

	if _, err := s.catalog.FindPatient(ctx, patientID); err != nil {
		return nil, lookupError(err, "patient")
	}
	doctor, err := s.catalog.FindDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, lookupError(err, "doctor")
	}
	if !doctor.Active {
		return nil, notFound("doctor not found")
	}
	if _, err := s.catalog.FindCondition(ctx, req.ConditionID); err != nil {
		return nil, lookupError(err, "condition")
	}

	eligible, err := s.eligibility.CanTreat(ctx, doctor.ID, req.ConditionID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, appErrors.ErrIneligible
	}

	key := models.SlotKey{DoctorID: doctor.ID, Weekday: weekday, TimeSlot: timeslot}
	slot, err := s.slots.FindByKey(ctx, key)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.ErrNoSuchSlot
		}
		return nil, internalError(err, "failed to load slot")
	}

	booking := &models.Booking{
		PatientID:    patientID,
		DoctorID:     doctor.ID,
		DepartmentID: slot.DepartmentID,
		ConditionID:  req.ConditionID,
		Weekday:      weekday,
		TimeSlot:     timeslot,
		Status:       models.BookingPaid,
		CreatedAt:    s.now(),
	}

	start := time.Now()
	err = s.bookings.Allocate(ctx, booking)
	s.metrics.ObserveAllocation(time.Since(start))
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrSlotFull):
		return nil, appErrors.ErrSlotFull
	case errors.Is(err, repository.ErrSlotMissing):
		return nil, appErrors.ErrNoSuchSlot
	default:
		return nil, internalError(err, "failed to allocate booking")
	}

	span.SetAttributes(attribute.String("booking.id", booking.ID))
	s.cache.Invalidate(ctx, cacheTimetablePrefix+"*")
	s.audit.Record(ctx, actor, models.AuditActionBookingCreate, "booking", booking.ID, booking)
	log.Info("booking admitted", zap.String("booking_id", booking.ID), zap.String("patient_id", patientID))
	return booking, nil
}

// Cancel moves a booking to CANCELLED, freeing its seat.
func (s *BookingService) Cancel(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	return s.transition(ctx, actor, id, models.BookingCancelled, func(b *models.Booking) error {
		if actor.IsAdmin() || (actor.Role == models.RolePatient && b.PatientID == actor.ID) {
			return nil
		}
		return forbidden("only the booking's patient or an administrator may cancel it")
	})
}

// Complete marks an attended appointment. It is rejected before the
// appointment's start time.
func (s *BookingService) Complete(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	return s.transition(ctx, actor, id, models.BookingCompleted, func(b *models.Booking) error {
		if !actor.IsAdmin() && !(actor.Role == models.RoleDoctor && b.DoctorID == actor.ID) {
			return forbidden("only the treating doctor or an administrator may complete a booking")
		}
		if at := b.AppointmentAt(s.loc); s.now().Before(at) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("appointment starts at %s", at.Format(time.RFC3339)))
		}
		return nil
	})
}

// ConfirmPayment records the external payment confirmation of a PENDING booking.
func (s *BookingService) ConfirmPayment(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	return s.transition(ctx, actor, id, models.BookingPaid, func(*models.Booking) error {
		if actor.IsAdmin() {
			return nil
		}
		return forbidden("only an administrator may confirm payment")
	})
}

func (s *BookingService) transition(ctx context.Context, actor models.Actor, id string, to models.BookingStatus, authorize func(*models.Booking) error) (_ *models.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.transition", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.String("booking.to", string(to)),
	))
	defer func() { endSpan(span, err) }()

	current, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "booking")
	}
	if err := authorize(current); err != nil {
		return nil, err
	}
	if !current.Status.CanTransition(to) {
		return nil, invalidTransition(current.Status, to)
	}

	updated, err := s.bookings.Transition(ctx, id, current.Status, to, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "booking status changed concurrently")
		}
		return nil, lookupError(err, "booking")
	}

	s.metrics.RecordTransition(string(current.Status), string(to))
	if !to.Occupies() {
		s.cache.Invalidate(ctx, cacheTimetablePrefix+"*")
	}
	s.audit.Record(ctx, actor, models.AuditActionBookingStatus, "booking", id, map[string]models.BookingStatus{"from": current.Status, "to": to})
	logger.WithRequest(ctx, s.logger).Info("booking status changed",
		zap.String("booking_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
	)
	return updated, nil
}

// Get returns a booking visible to its patient, its doctor or an administrator.
func (s *BookingService) Get(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "booking")
	}
	switch {
	case actor.IsAdmin():
	case actor.Role == models.RolePatient && booking.PatientID == actor.ID:
	case actor.Role == models.RoleDoctor && booking.DoctorID == actor.ID:
	default:
		return nil, forbidden("booking belongs to another patient")
	}
	return booking, nil
}

// ListForDoctorAndWeekday returns a doctor's day schedule, cancelled entries flagged.
func (s *BookingService) ListForDoctorAndWeekday(ctx context.Context, actor models.Actor, doctorID, weekday string) ([]models.DoctorDayEntry, error) {
	if !actor.IsAdmin() && !(actor.Role == models.RoleDoctor && actor.ID == doctorID) {
		return nil, forbidden("doctors may only read their own schedule")
	}
	day, err := models.ParseWeekday(weekday)
	if err != nil {
		return nil, invalidArgument(err, "invalid weekday")
	}
	if _, err := s.catalog.FindDoctor(ctx, doctorID); err != nil {
		return nil, lookupError(err, "doctor")
	}
	entries, err := s.bookings.ListByDoctorAndWeekday(ctx, doctorID, day)
	if err != nil {
		return nil, internalError(err, "failed to list doctor bookings")
	}
	return entries, nil
}

// ListForPatient returns a patient's bookings, newest first.
func (s *BookingService) ListForPatient(ctx context.Context, actor models.Actor, patientID string) ([]models.Booking, error) {
	if !actor.IsAdmin() && !(actor.Role == models.RolePatient && actor.ID == patientID) {
		return nil, forbidden("patients may only read their own bookings")
	}
	if _, err := s.catalog.FindPatient(ctx, patientID); err != nil {
		return nil, lookupError(err, "patient")
	}
	bookings, err := s.bookings.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, internalError(err, "failed to list patient bookings")
	}
	return bookings, nil
}

// Timetable lists the slots of every active doctor able to treat the
// condition, with live remaining capacity. An empty weekday means all days.
// The bool reports a cache hit.
func (s *BookingService) Timetable(ctx context.Context, conditionID, weekday string) ([]models.SlotAvailability, bool, error) {
	var day models.Weekday
	if weekday != "" {
		parsed, err := models.ParseWeekday(weekday)
		if err != nil {
			return nil, false, invalidArgument(err, "invalid weekday")
		}
		day = parsed
	}

	key := fmt.Sprintf("%s%s:%d", cacheTimetablePrefix, conditionID, int(day))
	epoch := s.cache.Epoch()
	var cached []models.SlotAvailability
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	doctors, err := s.eligibility.DoctorsForCondition(ctx, conditionID)
	if err != nil {
		return nil, false, err
	}
	rows := []models.SlotAvailability{}
	if len(doctors) > 0 {
		ids := make([]string, len(doctors))
		for i, d := range doctors {
			ids[i] = d.ID
		}
		rows, err = s.slots.Availability(ctx, ids, day)
		if err != nil {
			return nil, false, internalError(err, "failed to load timetable")
		}
	}
	s.cache.Fill(ctx, key, rows, epoch)
	return rows, false, nil
}

func (s *BookingService) bookingPatient(actor models.Actor, requested string) (string, error) {
	switch actor.Role {
	case models.RolePatient:
		if requested != "" && requested != actor.ID {
			return "", forbidden("patients may only book for themselves")
		}
		return actor.ID, nil
	case models.RoleAdmin:
		if requested == "" {
			return "", invalidArgument(nil, "patientId is required when booking on behalf of a patient")
		}
		return requested, nil
	default:
		return "", forbidden("role may not request bookings")
	}
}

func invalidTransition(from, to models.BookingStatus) *appErrors.Error {
	if from.Terminal() {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("booking is already %s", from))
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move booking from %s to %s", from, to))
}

func bookingOutcome(err error) string {
	if err == nil {
		return OutcomeAdmitted
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrSlotFull.Code:
		return OutcomeSlotFull
	case appErrors.ErrNoSuchSlot.Code:
		return OutcomeNoSuchSlot
	case appErrors.ErrIneligible.Code:
		return OutcomeIneligible
	case appErrors.ErrNotFound.Code:
		return OutcomeNotFound
	case appErrors.ErrInternal.Code:
		return OutcomeInternalFail
	default:
		return OutcomeRejected
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, appErrors.FromError(err).Code)
	}
	span.End()
}
