package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-booking-api/internal/models"
)

// CatalogRepository reads the reference data owned by the catalog service.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindDepartment returns sql.ErrNoRows when absent.
func (r *CatalogRepository) FindDepartment(ctx context.Context, id string) (*models.Department, error) {
	var dep models.Department
	if err := r.db.GetContext(ctx, &dep, `SELECT id, name, active FROM departments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &dep, nil
}

// FindDoctor returns sql.ErrNoRows when absent.
func (r *CatalogRepository) FindDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	var doc models.Doctor
	if err := r.db.GetContext(ctx, &doc, `SELECT id, name, title, department_id, active FROM doctors WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindCondition returns sql.ErrNoRows when absent.
func (r *CatalogRepository) FindCondition(ctx context.Context, id string) (*models.Condition, error) {
	var cond models.Condition
	if err := r.db.GetContext(ctx, &cond, `SELECT id, name, department_id FROM conditions WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &cond, nil
}

// FindPatient returns sql.ErrNoRows when absent.
func (r *CatalogRepository) FindPatient(ctx context.Context, id string) (*models.Patient, error) {
	var p models.Patient
	if err := r.db.GetContext(ctx, &p, `SELECT id, name FROM patients WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// CanTreat reports whether the capability relation links doctor and condition.
func (r *CatalogRepository) CanTreat(ctx context.Context, doctorID, conditionID string) (bool, error) {
	var ok bool
	const query = `SELECT EXISTS (SELECT 1 FROM doctor_conditions WHERE doctor_id = $1 AND condition_id = $2)`
	if err := r.db.GetContext(ctx, &ok, query, doctorID, conditionID); err != nil {
		return false, fmt.Errorf("check doctor capability: %w", err)
	}
	return ok, nil
}

// DoctorsForCondition lists active doctors able to treat the condition.
func (r *CatalogRepository) DoctorsForCondition(ctx context.Context, conditionID string) ([]models.Doctor, error) {
	const query = `SELECT d.id, d.name, d.title, d.department_id, d.active
FROM doctors d
JOIN doctor_conditions dc ON dc.doctor_id = d.id
WHERE dc.condition_id = $1 AND d.active = TRUE
ORDER BY d.name`
	var doctors []models.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, conditionID); err != nil {
		return nil, fmt.Errorf("list doctors for condition: %w", err)
	}
	return doctors, nil
}
