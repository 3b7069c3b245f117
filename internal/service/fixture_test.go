package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/internal/repository"
)

var (
	admin = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	// Monday 19 October 2026, before opening.
	mondayMorning = time.Date(2026, time.October, 19, 7, 0, 0, 0, time.UTC)
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type clinic struct {
	store    *repository.MemoryStore
	slots    *SlotService
	duties   *DutyService
	bookings *BookingService
	cache    *CacheService
	clock    *testClock
}

func patient(id string) models.Actor { return models.Actor{ID: id, Role: models.RolePatient} }

func doctorActor(id string) models.Actor { return models.Actor{ID: id, Role: models.RoleDoctor} }

func adminCtx() context.Context {
	return models.ContextWithActor(context.Background(), admin)
}

func newClinic(t *testing.T, patients int) *clinic {
	t.Helper()
	store := repository.NewMemoryStore()
	catalog := models.Catalog{
		Departments: []models.Department{
			{ID: "dep-1", Name: "Internal Medicine", Active: true},
			{ID: "dep-2", Name: "Pediatrics", Active: true},
			{ID: "dep-closed", Name: "Closed Ward", Active: false},
		},
		Doctors: []models.Doctor{
			{ID: "D1", Name: "Dr. Sari", Title: "Sp.PD", DepartmentID: "dep-1", Active: true},
			{ID: "D2", Name: "Dr. Bayu", DepartmentID: "dep-1", Active: true},
			{ID: "D3", Name: "Dr. Citra", DepartmentID: "dep-1", Active: true},
			{ID: "D9", Name: "Dr. Retired", DepartmentID: "dep-1", Active: false},
		},
		Conditions: []models.Condition{
			{ID: "flu", Name: "Influenza", DepartmentID: "dep-1"},
			{ID: "fracture", Name: "Fracture", DepartmentID: "dep-2"},
		},
		Capabilities: map[string][]string{"D1": {"flu"}, "D2": {"flu"}, "D9": {"flu"}},
	}
	for i := 1; i <= patients; i++ {
		catalog.Patients = append(catalog.Patients, models.Patient{ID: fmt.Sprintf("P%d", i), Name: fmt.Sprintf("Patient %d", i)})
	}
	store.Seed(catalog)

	lru, err := repository.NewLRUCacheRepository(64)
	require.NoError(t, err)
	cache := NewCacheService(lru, nil, time.Minute, nil)
	audit := NewAuditService(repository.NewMemoryAuditRepository(store), nil, nil)
	catalogRepo := repository.NewMemoryCatalogRepository(store)
	slotRepo := repository.NewMemorySlotRepository(store)
	clock := &testClock{now: mondayMorning}

	return &clinic{
		store:  store,
		cache:  cache,
		clock:  clock,
		slots:  NewSlotService(slotRepo, catalogRepo, cache, audit, nil, nil, nil),
		duties: NewDutyService(repository.NewMemoryDutyRepository(store), catalogRepo, audit, nil, nil, nil),
		bookings: NewBookingService(repository.NewMemoryBookingRepository(store), slotRepo, catalogRepo, nil, nil,
			WithClock(clock.Now), WithBookingCache(cache), WithBookingAudit(audit)),
	}
}
