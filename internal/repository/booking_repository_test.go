package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-booking-api/internal/models"
)

const (
	lockSlotSQL  = "SELECT capacity FROM weekly_slots WHERE doctor_id = $1 AND weekday = $2 AND timeslot = $3 FOR UPDATE"
	countSlotSQL = "SELECT COUNT(*) FROM bookings WHERE doctor_id = $1 AND weekday = $2 AND timeslot = $3 AND status = ANY($4)"
)

func newBooking() *models.Booking {
	return &models.Booking{
		PatientID:    "pat-1",
		DoctorID:     "doc-1",
		DepartmentID: "dep-1",
		ConditionID:  "cond-1",
		Weekday:      3,
		TimeSlot:     models.SlotAM2,
		Status:       models.BookingPaid,
	}
}

func TestBookingRepositoryAllocateAdmits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, RetryPolicy{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockSlotSQL)).
		WithArgs("doc-1", 3, "AM2").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(countSlotSQL)).
		WithArgs("doc-1", 3, "AM2", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	booking := newBooking()
	require.NoError(t, repo.Allocate(context.Background(), booking))
	assert.NotEmpty(t, booking.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryAllocateFull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, RetryPolicy{MaxRetries: 3})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockSlotSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(countSlotSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Allocate(context.Background(), newBooking())
	assert.ErrorIs(t, err, ErrSlotFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryAllocateMissingSlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, RetryPolicy{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockSlotSQL)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Allocate(context.Background(), newBooking())
	assert.ErrorIs(t, err, ErrSlotMissing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryAllocateRetriesSerializationFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, RetryPolicy{MaxRetries: 2, Interval: time.Millisecond})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockSlotSQL)).WillReturnError(&pq.Error{Code: "40P01"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockSlotSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(countSlotSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Allocate(context.Background(), newBooking()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryTransition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, RetryPolicy{})

	at := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "department_id", "condition_id", "weekday", "timeslot", "status", "created_at", "updated_at"}).
		AddRow("bk-1", "pat-1", "doc-1", "dep-1", "cond-1", int64(3), "AM2", "CANCELLED", at, at)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs("CANCELLED", at, "bk-1", "PAID").
		WillReturnRows(rows)

	booking, err := repo.Transition(context.Background(), "bk-1", models.BookingPaid, models.BookingCancelled, at)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, booking.Status)
}

func TestBookingRepositoryTransitionLostRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, RetryPolicy{})

	at := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET status")).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs("bk-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "department_id", "condition_id", "weekday", "timeslot", "status", "created_at", "updated_at"}).
			AddRow("bk-1", "pat-1", "doc-1", "dep-1", "cond-1", int64(3), "AM2", "COMPLETED", at, at))

	_, err := repo.Transition(context.Background(), "bk-1", models.BookingPaid, models.BookingCancelled, at)
	assert.ErrorIs(t, err, ErrStatusChanged)
}

func TestBookingRepositoryTransitionMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, RetryPolicy{})

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET status")).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).WillReturnError(sql.ErrNoRows)

	_, err := repo.Transition(context.Background(), "nope", models.BookingPaid, models.BookingCancelled, time.Now())
	assert.True(t, IsNotFound(err))
}

func TestBookingRepositoryListByDoctorAndWeekdayFlagsCancelled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, RetryPolicy{})

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "department_id", "condition_id", "weekday", "timeslot", "status", "created_at", "updated_at", "patient_name", "condition_name"}).
		AddRow("bk-1", "pat-1", "doc-1", "dep-1", "cond-1", int64(3), "AM2", "PAID", now, now, "Ana", "Flu").
		AddRow("bk-2", "pat-2", "doc-1", "dep-1", "cond-1", int64(3), "AM2", "CANCELLED", now, now, "Budi", "Flu")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.doctor_id = $1 AND b.weekday = $2")).
		WithArgs("doc-1", 3).
		WillReturnRows(rows)

	entries, err := repo.ListByDoctorAndWeekday(context.Background(), "doc-1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Cancelled)
	assert.True(t, entries[1].Cancelled)
	assert.Equal(t, "Budi", entries[1].PatientName)
}
