package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
)

var (
	// ErrDuplicateKey is returned when a slot or duty key is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrSlotMissing is returned by Allocate when no template exists for the key.
	ErrSlotMissing = errors.New("weekly slot missing")
	// ErrSlotFull is returned by Allocate when live bookings reached capacity.
	ErrSlotFull = errors.New("weekly slot full")
	// ErrStatusChanged is returned when a booking left the expected status
	// before a transition could be applied.
	ErrStatusChanged = errors.New("booking status changed")
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pqSerializationFailure || string(pqErr.Code) == pqDeadlockDetected
}

// RetryPolicy bounds how often a transaction aborted by the database for
// serialization or deadlock reasons is replayed.
type RetryPolicy struct {
	MaxRetries int
	Interval   time.Duration
}

func (p RetryPolicy) run(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	if p.Interval > 0 {
		b.InitialInterval = p.Interval
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxInt(p.MaxRetries, 0))), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if err == nil || isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
