package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/clinic-booking-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

func internalError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func invalidArgument(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status, message)
}

func notFound(message string) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrNotFound, message)
}

func forbidden(message string) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrForbidden, message)
}

func validate(v *validator.Validate, payload interface{}, message string) error {
	if err := v.Struct(payload); err != nil {
		return invalidArgument(err, message)
	}
	return nil
}

// lookupError maps a catalog or repository lookup failure onto NotFound or Internal.
func lookupError(err error, what string) *appErrors.Error {
	if repository.IsNotFound(err) {
		return notFound(what + " not found")
	}
	return internalError(err, "failed to load "+what)
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicateKey)
}
