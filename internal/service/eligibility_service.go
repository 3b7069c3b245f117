package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-booking-api/internal/models"
)

// catalogReader is the read-only view of the department/doctor/condition
// catalog owned by another system.
type catalogReader interface {
	FindDepartment(ctx context.Context, id string) (*models.Department, error)
	FindDoctor(ctx context.Context, id string) (*models.Doctor, error)
	FindCondition(ctx context.Context, id string) (*models.Condition, error)
	FindPatient(ctx context.Context, id string) (*models.Patient, error)
	CanTreat(ctx context.Context, doctorID, conditionID string) (bool, error)
	DoctorsForCondition(ctx context.Context, conditionID string) ([]models.Doctor, error)
}

// EligibilityService answers whether a doctor may take a booking for a condition.
type EligibilityService struct {
	catalog catalogReader
	logger  *zap.Logger
}

// NewEligibilityService constructs the service.
func NewEligibilityService(catalog catalogReader, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{catalog: catalog, logger: logger}
}

// CanTreat reports whether the doctor's capability set contains the condition.
func (s *EligibilityService) CanTreat(ctx context.Context, doctorID, conditionID string) (bool, error) {
	ok, err := s.catalog.CanTreat(ctx, doctorID, conditionID)
	if err != nil {
		return false, internalError(err, "failed to check doctor capability")
	}
	return ok, nil
}

// DoctorsForCondition lists active doctors able to treat the condition.
func (s *EligibilityService) DoctorsForCondition(ctx context.Context, conditionID string) ([]models.Doctor, error) {
	if _, err := s.catalog.FindCondition(ctx, conditionID); err != nil {
		return nil, lookupError(err, "condition")
	}
	doctors, err := s.catalog.DoctorsForCondition(ctx, conditionID)
	if err != nil {
		return nil, internalError(err, "failed to list doctors for condition")
	}
	return doctors, nil
}
