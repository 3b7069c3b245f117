package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/clinic-booking-api/internal/models"
)

const bookingColumns = "id, patient_id, doctor_id, department_id, condition_id, weekday, timeslot, status, created_at, updated_at"

// BookingRepository persists bookings and performs capacity-checked admission.
type BookingRepository struct {
	db    *sqlx.DB
	retry RetryPolicy
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB, retry RetryPolicy) *BookingRepository {
	return &BookingRepository{db: db, retry: retry}
}

// Allocate admits the booking into its slot. The template row is locked for
// the duration of the transaction so concurrent admissions on the same key
// observe each other's inserts; other keys lock other rows.
func (r *BookingRepository) Allocate(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	booking.UpdatedAt = booking.CreatedAt

	return r.retry.run(ctx, func() error {
		return r.allocateOnce(ctx, booking)
	})
}

func (r *BookingRepository) allocateOnce(ctx context.Context, booking *models.Booking) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	const lockQuery = `SELECT capacity FROM weekly_slots WHERE doctor_id = $1 AND weekday = $2 AND timeslot = $3 FOR UPDATE`
	if err = tx.GetContext(ctx, &capacity, lockQuery, booking.DoctorID, int(booking.Weekday), string(booking.TimeSlot)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSlotMissing
		}
		return fmt.Errorf("lock weekly slot: %w", err)
	}

	var occupied int
	const countQuery = `SELECT COUNT(*) FROM bookings WHERE doctor_id = $1 AND weekday = $2 AND timeslot = $3 AND status = ANY($4)`
	if err = tx.GetContext(ctx, &occupied, countQuery, booking.DoctorID, int(booking.Weekday), string(booking.TimeSlot), occupyingStatusArray()); err != nil {
		return fmt.Errorf("count slot occupancy: %w", err)
	}
	if occupied >= capacity {
		return ErrSlotFull
	}

	const insertQuery = `INSERT INTO bookings (id, patient_id, doctor_id, department_id, condition_id, weekday, timeslot, status, created_at, updated_at)
VALUES (:id, :patient_id, :doctor_id, :department_id, :condition_id, :weekday, :timeslot, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, booking); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

// Transition moves a booking from one status to another. ErrStatusChanged
// is returned when the booking is no longer in from; sql.ErrNoRows when it
// does not exist.
func (r *BookingRepository) Transition(ctx context.Context, id string, from, to models.BookingStatus, at time.Time) (*models.Booking, error) {
	var booking models.Booking
	query := `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 RETURNING ` + bookingColumns
	err := r.db.GetContext(ctx, &booking, query, string(to), at, id, string(from))
	if err == nil {
		return &booking, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition booking: %w", err)
	}
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, ErrStatusChanged
}

// FindByID returns sql.ErrNoRows when absent.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListByDoctorAndWeekday returns the doctor's bookings on a weekday, all
// statuses included, with patient and condition names.
func (r *BookingRepository) ListByDoctorAndWeekday(ctx context.Context, doctorID string, weekday models.Weekday) ([]models.DoctorDayEntry, error) {
	const query = `SELECT b.id, b.patient_id, b.doctor_id, b.department_id, b.condition_id, b.weekday, b.timeslot, b.status,
b.created_at, b.updated_at, p.name AS patient_name, c.name AS condition_name
FROM bookings b
JOIN patients p ON p.id = b.patient_id
JOIN conditions c ON c.id = b.condition_id
WHERE b.doctor_id = $1 AND b.weekday = $2
ORDER BY b.timeslot, b.created_at`
	var entries []models.DoctorDayEntry
	if err := r.db.SelectContext(ctx, &entries, query, doctorID, int(weekday)); err != nil {
		return nil, fmt.Errorf("list doctor day bookings: %w", err)
	}
	for i := range entries {
		entries[i].Cancelled = entries[i].Status == models.BookingCancelled
	}
	return entries, nil
}

// ListByPatient returns the patient's bookings, newest first.
func (r *BookingRepository) ListByPatient(ctx context.Context, patientID string) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE patient_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bookings, query, patientID); err != nil {
		return nil, fmt.Errorf("list patient bookings: %w", err)
	}
	return bookings, nil
}

func occupyingStatusArray() interface{} {
	values := make([]string, 0, len(models.OccupyingStatuses))
	for _, s := range models.OccupyingStatuses {
		values = append(values, string(s))
	}
	return pq.Array(values)
}
