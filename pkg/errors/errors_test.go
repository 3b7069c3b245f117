package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesOriginal(t *testing.T) {
	err := fmt.Errorf("allocate: %w", Clone(ErrSlotFull, "D1 Wednesday AM2 is full"))

	assert.ErrorIs(t, err, ErrSlotFull)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.True(t, IsCode(err, "SLOT_FULL"))
	assert.Equal(t, "slot has no remaining capacity", ErrSlotFull.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("driver: bad connection")
	appErr := FromError(cause)

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, cause)
	assert.Nil(t, FromError(nil))
}
