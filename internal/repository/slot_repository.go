package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-booking-api/internal/models"
)

var pg = goqu.Dialect("postgres")

const slotColumns = "id, doctor_id, department_id, weekday, timeslot, capacity, created_at, updated_at"

// SlotRepository persists weekly slot templates.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs the repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// Create inserts a new template. ErrDuplicateKey is returned when the
// (doctor, weekday, timeslot) key already exists.
func (r *SlotRepository) Create(ctx context.Context, slot *models.WeeklySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = slot.CreatedAt

	const query = `INSERT INTO weekly_slots (id, doctor_id, department_id, weekday, timeslot, capacity, created_at, updated_at)
VALUES (:id, :doctor_id, :department_id, :weekday, :timeslot, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create weekly slot: %w", err)
	}
	return nil
}

// Update rewrites every mutable column of the template.
func (r *SlotRepository) Update(ctx context.Context, slot *models.WeeklySlot) error {
	if slot.UpdatedAt.IsZero() {
		slot.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE weekly_slots SET doctor_id = :doctor_id, department_id = :department_id, weekday = :weekday,
timeslot = :timeslot, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, slot)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update weekly slot: %w", err)
	}
	return expectAffected(res, "update weekly slot")
}

// Delete removes a template. Bookings referencing the key are kept.
func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM weekly_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete weekly slot: %w", err)
	}
	return expectAffected(res, "delete weekly slot")
}

// DeleteByDepartment removes every template of a department.
func (r *SlotRepository) DeleteByDepartment(ctx context.Context, departmentID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM weekly_slots WHERE department_id = $1`, departmentID)
	if err != nil {
		return 0, fmt.Errorf("delete department slots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete department slots: %w", err)
	}
	return int(n), nil
}

// FindByID returns sql.ErrNoRows when absent.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.WeeklySlot, error) {
	var slot models.WeeklySlot
	query := `SELECT ` + slotColumns + ` FROM weekly_slots WHERE id = $1`
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindByKey returns sql.ErrNoRows when the key holds no template.
func (r *SlotRepository) FindByKey(ctx context.Context, key models.SlotKey) (*models.WeeklySlot, error) {
	var slot models.WeeklySlot
	query := `SELECT ` + slotColumns + ` FROM weekly_slots WHERE doctor_id = $1 AND weekday = $2 AND timeslot = $3`
	if err := r.db.GetContext(ctx, &slot, query, key.DoctorID, int(key.Weekday), string(key.TimeSlot)); err != nil {
		return nil, err
	}
	return &slot, nil
}

// List returns templates matching the filter along with the total count.
func (r *SlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.WeeklySlot, int, error) {
	ds := pg.From("weekly_slots").Prepared(true)
	where := goqu.Ex{}
	if filter.DoctorID != "" {
		where["doctor_id"] = filter.DoctorID
	}
	if filter.DepartmentID != "" {
		where["department_id"] = filter.DepartmentID
	}
	if filter.Weekday != 0 {
		where["weekday"] = int(filter.Weekday)
	}
	if filter.TimeSlot != "" {
		where["timeslot"] = string(filter.TimeSlot)
	}
	if len(where) > 0 {
		ds = ds.Where(where)
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count weekly slots: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count weekly slots: %w", err)
	}

	_, size, offset := models.Normalize(filter.Page, filter.PageSize)
	query, args, err := ds.
		Select("id", "doctor_id", "department_id", "weekday", "timeslot", "capacity", "created_at", "updated_at").
		Order(goqu.I("doctor_id").Asc(), goqu.I("weekday").Asc(), goqu.I("timeslot").Asc()).
		Limit(uint(size)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list weekly slots: %w", err)
	}

	var slots []models.WeeklySlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list weekly slots: %w", err)
	}
	return slots, total, nil
}

// ListByDoctor returns every template of a doctor ordered by weekday and slot.
func (r *SlotRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.WeeklySlot, error) {
	var slots []models.WeeklySlot
	query := `SELECT ` + slotColumns + ` FROM weekly_slots WHERE doctor_id = $1 ORDER BY weekday, timeslot`
	if err := r.db.SelectContext(ctx, &slots, query, doctorID); err != nil {
		return nil, fmt.Errorf("list doctor slots: %w", err)
	}
	return slots, nil
}

// Availability joins the templates of the given doctors with their live
// occupancy. A zero weekday selects every working day.
func (r *SlotRepository) Availability(ctx context.Context, doctorIDs []string, weekday models.Weekday) ([]models.SlotAvailability, error) {
	if len(doctorIDs) == 0 {
		return []models.SlotAvailability{}, nil
	}

	occupancy := pg.From(goqu.T("bookings").As("b")).
		Select(goqu.COUNT("*")).
		Where(
			goqu.I("b.doctor_id").Eq(goqu.I("s.doctor_id")),
			goqu.I("b.weekday").Eq(goqu.I("s.weekday")),
			goqu.I("b.timeslot").Eq(goqu.I("s.timeslot")),
			goqu.I("b.status").In(occupyingStatusValues()...),
		)

	ds := pg.From(goqu.T("weekly_slots").As("s")).Prepared(true).
		Select(
			goqu.I("s.id"), goqu.I("s.doctor_id"), goqu.I("s.department_id"), goqu.I("s.weekday"),
			goqu.I("s.timeslot"), goqu.I("s.capacity"), goqu.I("s.created_at"), goqu.I("s.updated_at"),
			goqu.I("d.name").As("doctor_name"),
			goqu.I("d.title").As("doctor_title"),
			goqu.I("dep.name").As("department_name"),
			occupancy.As("occupied"),
		).
		InnerJoin(goqu.T("doctors").As("d"), goqu.On(goqu.I("d.id").Eq(goqu.I("s.doctor_id")))).
		InnerJoin(goqu.T("departments").As("dep"), goqu.On(goqu.I("dep.id").Eq(goqu.I("s.department_id")))).
		Where(goqu.I("s.doctor_id").In(toInterfaces(doctorIDs)...)).
		Order(goqu.I("s.weekday").Asc(), goqu.I("s.timeslot").Asc(), goqu.I("d.name").Asc())
	if weekday != 0 {
		ds = ds.Where(goqu.I("s.weekday").Eq(int(weekday)))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build slot availability: %w", err)
	}
	var rows []models.SlotAvailability
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query slot availability: %w", err)
	}
	for i := range rows {
		rows[i].Fill()
	}
	return rows, nil
}

func occupyingStatusValues() []interface{} {
	out := make([]interface{}, 0, len(models.OccupyingStatuses))
	for _, s := range models.OccupyingStatuses {
		out = append(out, string(s))
	}
	return out
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsNotFound reports whether err signals a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
