package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-booking-api/internal/models"
)

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	store.Seed(models.Catalog{
		Departments: []models.Department{{ID: "dep-1", Name: "Internal Medicine", Active: true}},
		Doctors: []models.Doctor{
			{ID: "doc-1", Name: "Dr. Sari", DepartmentID: "dep-1", Active: true},
			{ID: "doc-2", Name: "Dr. Bayu", DepartmentID: "dep-1", Active: true},
		},
		Conditions:   []models.Condition{{ID: "cond-1", Name: "Flu", DepartmentID: "dep-1"}},
		Patients:     []models.Patient{{ID: "pat-1", Name: "Ana"}},
		Capabilities: map[string][]string{"doc-1": {"cond-1"}},
	})
	return store
}

func TestMemoryAllocateNeverExceedsCapacity(t *testing.T) {
	const (
		capacity = 3
		requests = 40
	)
	store := seededStore(t)
	slots := NewMemorySlotRepository(store)
	bookings := NewMemoryBookingRepository(store)
	ctx := context.Background()

	require.NoError(t, slots.Create(ctx, &models.WeeklySlot{DoctorID: "doc-1", DepartmentID: "dep-1", Weekday: 3, TimeSlot: models.SlotAM2, Capacity: capacity}))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		full     int
	)
	start := make(chan struct{})
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			b := &models.Booking{
				PatientID: fmt.Sprintf("pat-%d", i), DoctorID: "doc-1", DepartmentID: "dep-1", ConditionID: "cond-1",
				Weekday: 3, TimeSlot: models.SlotAM2, Status: models.BookingPaid,
			}
			err := bookings.Allocate(ctx, b)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrSlotFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, capacity, admitted)
	assert.Equal(t, requests-capacity, full)

	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.Equal(t, capacity, store.occupancy(models.SlotKey{DoctorID: "doc-1", Weekday: 3, TimeSlot: models.SlotAM2}))
}

func TestMemoryConcurrentSlotDefineSingleWinner(t *testing.T) {
	store := seededStore(t)
	slots := NewMemorySlotRepository(store)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- slots.Create(context.Background(), &models.WeeklySlot{DoctorID: "doc-1", DepartmentID: "dep-1", Weekday: 1, TimeSlot: models.SlotAM1, Capacity: 2})
		}()
	}
	wg.Wait()
	close(errs)

	ok, dup := 0, 0
	for err := range errs {
		if err == nil {
			ok++
		} else if errors.Is(err, ErrDuplicateKey) {
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 19, dup)
}

func TestMemoryAllocateMissingSlot(t *testing.T) {
	store := seededStore(t)
	err := NewMemoryBookingRepository(store).Allocate(context.Background(), &models.Booking{DoctorID: "doc-1", Weekday: 2, TimeSlot: models.SlotPM1})
	assert.ErrorIs(t, err, ErrSlotMissing)
}

func TestMemoryTransitionIsCompareAndSwap(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	require.NoError(t, NewMemorySlotRepository(store).Create(ctx, &models.WeeklySlot{DoctorID: "doc-1", DepartmentID: "dep-1", Weekday: 3, TimeSlot: models.SlotAM2, Capacity: 1}))
	bookings := NewMemoryBookingRepository(store)
	b := &models.Booking{PatientID: "pat-1", DoctorID: "doc-1", Weekday: 3, TimeSlot: models.SlotAM2, Status: models.BookingPaid}
	require.NoError(t, bookings.Allocate(ctx, b))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, to := range []models.BookingStatus{models.BookingCancelled, models.BookingCompleted} {
		wg.Add(1)
		go func(to models.BookingStatus) {
			defer wg.Done()
			_, err := bookings.Transition(ctx, b.ID, models.BookingPaid, to, b.CreatedAt)
			results <- err
		}(to)
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		if err == nil {
			won++
		} else if errors.Is(err, ErrStatusChanged) {
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
}

func TestMemoryDutyUpdateSameKeyInPlace(t *testing.T) {
	store := seededStore(t)
	duties := NewMemoryDutyRepository(store)
	ctx := context.Background()

	duty := &models.DutyAssignment{DepartmentID: "dep-1", DoctorID: "doc-1", WeekendDay: models.Saturday, Shift: models.ShiftMorning}
	require.NoError(t, duties.Create(ctx, duty))
	assert.ErrorIs(t, duties.Create(ctx, &models.DutyAssignment{DepartmentID: "dep-1", DoctorID: "doc-2", WeekendDay: models.Saturday, Shift: models.ShiftMorning}), ErrDuplicateKey)

	duty.DoctorID = "doc-2"
	require.NoError(t, duties.Update(ctx, duty))

	all, err := duties.Query(ctx, models.DutyFilter{DepartmentID: "dep-1"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "doc-2", all[0].DoctorID)
}

func TestMemoryAvailabilityCountsLiveBookings(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	require.NoError(t, NewMemorySlotRepository(store).Create(ctx, &models.WeeklySlot{DoctorID: "doc-1", DepartmentID: "dep-1", Weekday: 3, TimeSlot: models.SlotAM2, Capacity: 2}))
	bookings := NewMemoryBookingRepository(store)
	first := &models.Booking{PatientID: "pat-1", DoctorID: "doc-1", Weekday: 3, TimeSlot: models.SlotAM2, Status: models.BookingPaid}
	require.NoError(t, bookings.Allocate(ctx, first))
	second := &models.Booking{PatientID: "pat-1", DoctorID: "doc-1", Weekday: 3, TimeSlot: models.SlotAM2, Status: models.BookingPaid}
	require.NoError(t, bookings.Allocate(ctx, second))
	_, err := bookings.Transition(ctx, first.ID, models.BookingPaid, models.BookingCancelled, first.CreatedAt)
	require.NoError(t, err)

	rows, err := NewMemorySlotRepository(store).Availability(ctx, []string{"doc-1"}, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Occupied)
	assert.Equal(t, 1, rows[0].Remaining)
	assert.Equal(t, "Dr. Sari", rows[0].DoctorName)
	assert.Equal(t, "09:00-10:00", rows[0].TimeRange)
}
