package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-booking-api/internal/models"
)

const dutyColumns = "id, department_id, doctor_id, weekend_day, shift, created_at, updated_at"

// DutyRepository persists weekend on-call assignments.
type DutyRepository struct {
	db *sqlx.DB
}

// NewDutyRepository constructs the repository.
func NewDutyRepository(db *sqlx.DB) *DutyRepository {
	return &DutyRepository{db: db}
}

// Create inserts an assignment. ErrDuplicateKey is returned when the
// (department, weekend day, shift) key is already taken.
func (r *DutyRepository) Create(ctx context.Context, duty *models.DutyAssignment) error {
	if duty.ID == "" {
		duty.ID = uuid.NewString()
	}
	if duty.CreatedAt.IsZero() {
		duty.CreatedAt = time.Now().UTC()
	}
	duty.UpdatedAt = duty.CreatedAt

	const query = `INSERT INTO duty_assignments (id, department_id, doctor_id, weekend_day, shift, created_at, updated_at)
VALUES (:id, :department_id, :doctor_id, :weekend_day, :shift, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, duty); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create duty assignment: %w", err)
	}
	return nil
}

// Update rewrites the assignment in place.
func (r *DutyRepository) Update(ctx context.Context, duty *models.DutyAssignment) error {
	if duty.UpdatedAt.IsZero() {
		duty.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE duty_assignments SET department_id = :department_id, doctor_id = :doctor_id,
weekend_day = :weekend_day, shift = :shift, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, duty)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update duty assignment: %w", err)
	}
	return expectAffected(res, "update duty assignment")
}

// Delete removes an assignment.
func (r *DutyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM duty_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete duty assignment: %w", err)
	}
	return expectAffected(res, "delete duty assignment")
}

// DeleteByDepartment clears a department's weekend roster.
func (r *DutyRepository) DeleteByDepartment(ctx context.Context, departmentID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM duty_assignments WHERE department_id = $1`, departmentID)
	if err != nil {
		return 0, fmt.Errorf("delete department duties: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete department duties: %w", err)
	}
	return int(n), nil
}

// FindByID returns sql.ErrNoRows when absent.
func (r *DutyRepository) FindByID(ctx context.Context, id string) (*models.DutyAssignment, error) {
	var duty models.DutyAssignment
	query := `SELECT ` + dutyColumns + ` FROM duty_assignments WHERE id = $1`
	if err := r.db.GetContext(ctx, &duty, query, id); err != nil {
		return nil, err
	}
	return &duty, nil
}

// FindByKey returns sql.ErrNoRows when the key is free.
func (r *DutyRepository) FindByKey(ctx context.Context, key models.DutyKey) (*models.DutyAssignment, error) {
	var duty models.DutyAssignment
	query := `SELECT ` + dutyColumns + ` FROM duty_assignments WHERE department_id = $1 AND weekend_day = $2 AND shift = $3`
	if err := r.db.GetContext(ctx, &duty, query, key.DepartmentID, string(key.WeekendDay), string(key.Shift)); err != nil {
		return nil, err
	}
	return &duty, nil
}

// Query returns assignments matching every non-empty filter field.
func (r *DutyRepository) Query(ctx context.Context, filter models.DutyFilter) ([]models.DutyAssignment, error) {
	ds := pg.From("duty_assignments").Prepared(true).
		Select("id", "department_id", "doctor_id", "weekend_day", "shift", "created_at", "updated_at")

	where := goqu.Ex{}
	if filter.DepartmentID != "" {
		where["department_id"] = filter.DepartmentID
	}
	if filter.DoctorID != "" {
		where["doctor_id"] = filter.DoctorID
	}
	if filter.WeekendDay != "" {
		where["weekend_day"] = string(filter.WeekendDay)
	}
	if filter.Shift != "" {
		where["shift"] = string(filter.Shift)
	}
	if len(where) > 0 {
		ds = ds.Where(where)
	}
	ds = ds.Order(goqu.I("department_id").Asc(), goqu.I("weekend_day").Asc(), goqu.I("shift").Asc())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build duty query: %w", err)
	}
	var duties []models.DutyAssignment
	if err := r.db.SelectContext(ctx, &duties, query, args...); err != nil {
		return nil, fmt.Errorf("query duty assignments: %w", err)
	}
	return duties, nil
}
