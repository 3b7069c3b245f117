package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-booking-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestSlotRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO weekly_slots")).
		WithArgs(sqlmock.AnyArg(), "doc-1", "dep-1", int64(3), "AM2", 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.WeeklySlot{DoctorID: "doc-1", DepartmentID: "dep-1", Weekday: 3, TimeSlot: models.SlotAM2, Capacity: 2}
	require.NoError(t, repo.Create(context.Background(), slot))
	assert.NotEmpty(t, slot.ID)
	assert.False(t, slot.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO weekly_slots")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uk_weekly_slot_doctor_weekday_timeslot"})

	err := repo.Create(context.Background(), &models.WeeklySlot{DoctorID: "doc-1", Weekday: 1, TimeSlot: models.SlotAM1, Capacity: 2})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestSlotRepositoryFindByKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "doctor_id", "department_id", "weekday", "timeslot", "capacity", "created_at", "updated_at"}).
		AddRow("slot-1", "doc-1", "dep-1", int64(3), "AM2", 2, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM weekly_slots WHERE doctor_id = $1 AND weekday = $2 AND timeslot = $3")).
		WithArgs("doc-1", 3, "AM2").
		WillReturnRows(rows)

	slot, err := repo.FindByKey(context.Background(), models.SlotKey{DoctorID: "doc-1", Weekday: 3, TimeSlot: models.SlotAM2})
	require.NoError(t, err)
	assert.Equal(t, "slot-1", slot.ID)
	assert.Equal(t, models.Weekday(3), slot.Weekday)
	assert.Equal(t, models.SlotAM2, slot.TimeSlot)
}

func TestSlotRepositoryFindByKeyMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM weekly_slots")).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByKey(context.Background(), models.SlotKey{DoctorID: "doc-1", Weekday: 1, TimeSlot: models.SlotPM4})
	assert.True(t, IsNotFound(err))
}

func TestSlotRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM weekly_slots WHERE id = $1")).
		WithArgs("slot-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "slot-x"), sql.ErrNoRows)
}

func TestSlotRepositoryDeleteByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM weekly_slots WHERE department_id = $1")).
		WithArgs("dep-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteByDepartment(context.Background(), "dep-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestSlotRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "weekly_slots"`).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	now := time.Now()
	mock.ExpectQuery(`SELECT "id", "doctor_id", .* FROM "weekly_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doctor_id", "department_id", "weekday", "timeslot", "capacity", "created_at", "updated_at"}).
			AddRow("slot-1", "doc-1", "dep-1", int64(2), "PM1", 3, now, now))

	slots, total, err := repo.List(context.Background(), models.SlotFilter{DoctorID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, slots, 1)
	assert.Equal(t, 3, slots[0].Capacity)
}
