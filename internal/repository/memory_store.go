package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/pkg/keylock"
)

// MemoryStore keeps scheduling state and a catalog snapshot in process. The
// repositories built on it honour the same contracts as the Postgres ones:
// uniqueness checks and inserts happen under one write lock, and admission
// into a slot is serialised per slot key.
type MemoryStore struct {
	mu sync.RWMutex

	departments  map[string]models.Department
	doctors      map[string]models.Doctor
	conditions   map[string]models.Condition
	patients     map[string]models.Patient
	capabilities map[string]map[string]struct{}

	slots     map[string]models.WeeklySlot
	slotByKey map[models.SlotKey]string
	duties    map[string]models.DutyAssignment
	dutyByKey map[models.DutyKey]string
	bookings  map[string]models.Booking
	audit     []models.AuditLog

	slotLocks *keylock.Locker
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		departments:  make(map[string]models.Department),
		doctors:      make(map[string]models.Doctor),
		conditions:   make(map[string]models.Condition),
		patients:     make(map[string]models.Patient),
		capabilities: make(map[string]map[string]struct{}),
		slots:        make(map[string]models.WeeklySlot),
		slotByKey:    make(map[models.SlotKey]string),
		duties:       make(map[string]models.DutyAssignment),
		dutyByKey:    make(map[models.DutyKey]string),
		bookings:     make(map[string]models.Booking),
		slotLocks:    keylock.New(),
	}
}

// Seed loads a catalog snapshot, replacing entries with the same ids.
func (s *MemoryStore) Seed(catalog models.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range catalog.Departments {
		s.departments[d.ID] = d
	}
	for _, d := range catalog.Doctors {
		s.doctors[d.ID] = d
	}
	for _, c := range catalog.Conditions {
		s.conditions[c.ID] = c
	}
	for _, p := range catalog.Patients {
		s.patients[p.ID] = p
	}
	for doctorID, conditionIDs := range catalog.Capabilities {
		set, ok := s.capabilities[doctorID]
		if !ok {
			set = make(map[string]struct{}, len(conditionIDs))
			s.capabilities[doctorID] = set
		}
		for _, id := range conditionIDs {
			set[id] = struct{}{}
		}
	}
}

// AuditLogs returns a copy of the recorded audit trail.
func (s *MemoryStore) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.audit...)
}

func (s *MemoryStore) occupancy(key models.SlotKey) int {
	n := 0
	for _, b := range s.bookings {
		if b.Key() == key && b.Status.Occupies() {
			n++
		}
	}
	return n
}

// MemorySlotRepository implements the slot repository contract on a MemoryStore.
type MemorySlotRepository struct{ s *MemoryStore }

// NewMemorySlotRepository wraps store.
func NewMemorySlotRepository(store *MemoryStore) *MemorySlotRepository {
	return &MemorySlotRepository{s: store}
}

func (r *MemorySlotRepository) Create(_ context.Context, slot *models.WeeklySlot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.slotByKey[slot.Key()]; taken {
		return ErrDuplicateKey
	}
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	slot.UpdatedAt = slot.CreatedAt
	r.s.slots[slot.ID] = *slot
	r.s.slotByKey[slot.Key()] = slot.ID
	return nil
}

func (r *MemorySlotRepository) Update(_ context.Context, slot *models.WeeklySlot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.slots[slot.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if owner, taken := r.s.slotByKey[slot.Key()]; taken && owner != slot.ID {
		return ErrDuplicateKey
	}
	if slot.UpdatedAt.IsZero() {
		slot.UpdatedAt = time.Now().UTC()
	}
	slot.CreatedAt = current.CreatedAt
	delete(r.s.slotByKey, current.Key())
	r.s.slots[slot.ID] = *slot
	r.s.slotByKey[slot.Key()] = slot.ID
	return nil
}

func (r *MemorySlotRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.slots[id]
	if !ok {
		return sql.ErrNoRows
	}
	delete(r.s.slots, id)
	delete(r.s.slotByKey, slot.Key())
	return nil
}

func (r *MemorySlotRepository) DeleteByDepartment(_ context.Context, departmentID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, slot := range r.s.slots {
		if slot.DepartmentID == departmentID {
			delete(r.s.slots, id)
			delete(r.s.slotByKey, slot.Key())
			n++
		}
	}
	return n, nil
}

func (r *MemorySlotRepository) FindByID(_ context.Context, id string) (*models.WeeklySlot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	slot, ok := r.s.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &slot, nil
}

func (r *MemorySlotRepository) FindByKey(_ context.Context, key models.SlotKey) (*models.WeeklySlot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.slotByKey[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	slot := r.s.slots[id]
	return &slot, nil
}

func (r *MemorySlotRepository) List(_ context.Context, filter models.SlotFilter) ([]models.WeeklySlot, int, error) {
	r.s.mu.RLock()
	matched := make([]models.WeeklySlot, 0)
	for _, slot := range r.s.slots {
		if filter.DoctorID != "" && slot.DoctorID != filter.DoctorID {
			continue
		}
		if filter.DepartmentID != "" && slot.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Weekday != 0 && slot.Weekday != filter.Weekday {
			continue
		}
		if filter.TimeSlot != "" && slot.TimeSlot != filter.TimeSlot {
			continue
		}
		matched = append(matched, slot)
	}
	r.s.mu.RUnlock()

	sortSlots(matched)
	total := len(matched)
	_, size, offset := models.Normalize(filter.Page, filter.PageSize)
	if offset >= total {
		return []models.WeeklySlot{}, total, nil
	}
	end := offset + size
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *MemorySlotRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.WeeklySlot, error) {
	slots, _, err := r.List(ctx, models.SlotFilter{DoctorID: doctorID, PageSize: models.MaxPageSize})
	if err != nil {
		return nil, err
	}
	// a doctor has at most 5x8 templates, well under MaxPageSize
	return slots, nil
}

func (r *MemorySlotRepository) Availability(_ context.Context, doctorIDs []string, weekday models.Weekday) ([]models.SlotAvailability, error) {
	wanted := make(map[string]struct{}, len(doctorIDs))
	for _, id := range doctorIDs {
		wanted[id] = struct{}{}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.SlotAvailability, 0)
	for _, slot := range r.s.slots {
		if _, ok := wanted[slot.DoctorID]; !ok {
			continue
		}
		if weekday != 0 && slot.Weekday != weekday {
			continue
		}
		doctor := r.s.doctors[slot.DoctorID]
		row := models.SlotAvailability{
			WeeklySlot:     slot,
			DoctorName:     doctor.Name,
			DoctorTitle:    doctor.Title,
			DepartmentName: r.s.departments[slot.DepartmentID].Name,
			Occupied:       r.s.occupancy(slot.Key()),
		}
		row.Fill()
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.TimeSlot != b.TimeSlot {
			return a.TimeSlot < b.TimeSlot
		}
		return a.DoctorName < b.DoctorName
	})
	return out, nil
}

func sortSlots(slots []models.WeeklySlot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.DoctorID != b.DoctorID {
			return a.DoctorID < b.DoctorID
		}
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		return a.TimeSlot < b.TimeSlot
	})
}

// MemoryDutyRepository implements the duty repository contract on a MemoryStore.
type MemoryDutyRepository struct{ s *MemoryStore }

// NewMemoryDutyRepository wraps store.
func NewMemoryDutyRepository(store *MemoryStore) *MemoryDutyRepository {
	return &MemoryDutyRepository{s: store}
}

func (r *MemoryDutyRepository) Create(_ context.Context, duty *models.DutyAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.dutyByKey[duty.Key()]; taken {
		return ErrDuplicateKey
	}
	if duty.ID == "" {
		duty.ID = uuid.NewString()
	}
	if duty.CreatedAt.IsZero() {
		duty.CreatedAt = time.Now().UTC()
	}
	duty.UpdatedAt = duty.CreatedAt
	r.s.duties[duty.ID] = *duty
	r.s.dutyByKey[duty.Key()] = duty.ID
	return nil
}

func (r *MemoryDutyRepository) Update(_ context.Context, duty *models.DutyAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.duties[duty.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if owner, taken := r.s.dutyByKey[duty.Key()]; taken && owner != duty.ID {
		return ErrDuplicateKey
	}
	if duty.UpdatedAt.IsZero() {
		duty.UpdatedAt = time.Now().UTC()
	}
	duty.CreatedAt = current.CreatedAt
	delete(r.s.dutyByKey, current.Key())
	r.s.duties[duty.ID] = *duty
	r.s.dutyByKey[duty.Key()] = duty.ID
	return nil
}

func (r *MemoryDutyRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	duty, ok := r.s.duties[id]
	if !ok {
		return sql.ErrNoRows
	}
	delete(r.s.duties, id)
	delete(r.s.dutyByKey, duty.Key())
	return nil
}

func (r *MemoryDutyRepository) DeleteByDepartment(_ context.Context, departmentID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, duty := range r.s.duties {
		if duty.DepartmentID == departmentID {
			delete(r.s.duties, id)
			delete(r.s.dutyByKey, duty.Key())
			n++
		}
	}
	return n, nil
}

func (r *MemoryDutyRepository) FindByID(_ context.Context, id string) (*models.DutyAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	duty, ok := r.s.duties[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &duty, nil
}

func (r *MemoryDutyRepository) FindByKey(_ context.Context, key models.DutyKey) (*models.DutyAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.dutyByKey[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	duty := r.s.duties[id]
	return &duty, nil
}

func (r *MemoryDutyRepository) Query(_ context.Context, filter models.DutyFilter) ([]models.DutyAssignment, error) {
	r.s.mu.RLock()
	out := make([]models.DutyAssignment, 0)
	for _, duty := range r.s.duties {
		if filter.DepartmentID != "" && duty.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.DoctorID != "" && duty.DoctorID != filter.DoctorID {
			continue
		}
		if filter.WeekendDay != "" && duty.WeekendDay != filter.WeekendDay {
			continue
		}
		if filter.Shift != "" && duty.Shift != filter.Shift {
			continue
		}
		out = append(out, duty)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DepartmentID != b.DepartmentID {
			return a.DepartmentID < b.DepartmentID
		}
		if a.WeekendDay != b.WeekendDay {
			return a.WeekendDay < b.WeekendDay
		}
		return a.Shift < b.Shift
	})
	return out, nil
}

// MemoryBookingRepository implements the booking repository contract on a MemoryStore.
type MemoryBookingRepository struct{ s *MemoryStore }

// NewMemoryBookingRepository wraps store.
func NewMemoryBookingRepository(store *MemoryStore) *MemoryBookingRepository {
	return &MemoryBookingRepository{s: store}
}

// Allocate holds the slot key's lock across the capacity check and the insert.
func (r *MemoryBookingRepository) Allocate(ctx context.Context, booking *models.Booking) error {
	key := booking.Key()
	unlock := r.s.slotLocks.Lock(key.String())
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.RLock()
	id, ok := r.s.slotByKey[key]
	capacity := r.s.slots[id].Capacity
	occupied := r.s.occupancy(key)
	r.s.mu.RUnlock()

	if !ok {
		return ErrSlotMissing
	}
	if occupied >= capacity {
		return ErrSlotFull
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	booking.UpdatedAt = booking.CreatedAt

	r.s.mu.Lock()
	r.s.bookings[booking.ID] = *booking
	r.s.mu.Unlock()
	return nil
}

func (r *MemoryBookingRepository) Transition(_ context.Context, id string, from, to models.BookingStatus, at time.Time) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	booking, ok := r.s.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if booking.Status != from {
		return nil, ErrStatusChanged
	}
	booking.Status = to
	booking.UpdatedAt = at
	r.s.bookings[id] = booking
	return &booking, nil
}

func (r *MemoryBookingRepository) FindByID(_ context.Context, id string) (*models.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	booking, ok := r.s.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &booking, nil
}

func (r *MemoryBookingRepository) ListByDoctorAndWeekday(_ context.Context, doctorID string, weekday models.Weekday) ([]models.DoctorDayEntry, error) {
	r.s.mu.RLock()
	out := make([]models.DoctorDayEntry, 0)
	for _, b := range r.s.bookings {
		if b.DoctorID != doctorID || b.Weekday != weekday {
			continue
		}
		out = append(out, models.DoctorDayEntry{
			Booking:       b,
			PatientName:   r.s.patients[b.PatientID].Name,
			ConditionName: r.s.conditions[b.ConditionID].Name,
			Cancelled:     b.Status == models.BookingCancelled,
		})
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TimeSlot != out[j].TimeSlot {
			return out[i].TimeSlot < out[j].TimeSlot
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryBookingRepository) ListByPatient(_ context.Context, patientID string) ([]models.Booking, error) {
	r.s.mu.RLock()
	out := make([]models.Booking, 0)
	for _, b := range r.s.bookings {
		if b.PatientID == patientID {
			out = append(out, b)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MemoryCatalogRepository serves the seeded catalog snapshot.
type MemoryCatalogRepository struct{ s *MemoryStore }

// NewMemoryCatalogRepository wraps store.
func NewMemoryCatalogRepository(store *MemoryStore) *MemoryCatalogRepository {
	return &MemoryCatalogRepository{s: store}
}

func (r *MemoryCatalogRepository) FindDepartment(_ context.Context, id string) (*models.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	dep, ok := r.s.departments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &dep, nil
}

func (r *MemoryCatalogRepository) FindDoctor(_ context.Context, id string) (*models.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	doc, ok := r.s.doctors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &doc, nil
}

func (r *MemoryCatalogRepository) FindCondition(_ context.Context, id string) (*models.Condition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cond, ok := r.s.conditions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &cond, nil
}

func (r *MemoryCatalogRepository) FindPatient(_ context.Context, id string) (*models.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r *MemoryCatalogRepository) CanTreat(_ context.Context, doctorID, conditionID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.capabilities[doctorID][conditionID]
	return ok, nil
}

func (r *MemoryCatalogRepository) DoctorsForCondition(_ context.Context, conditionID string) ([]models.Doctor, error) {
	r.s.mu.RLock()
	out := make([]models.Doctor, 0)
	for doctorID, conditions := range r.s.capabilities {
		if _, ok := conditions[conditionID]; !ok {
			continue
		}
		if doc, ok := r.s.doctors[doctorID]; ok && doc.Active {
			out = append(out, doc)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MemoryAuditRepository appends audit entries to the store.
type MemoryAuditRepository struct{ s *MemoryStore }

// NewMemoryAuditRepository wraps store.
func NewMemoryAuditRepository(store *MemoryStore) *MemoryAuditRepository {
	return &MemoryAuditRepository{s: store}
}

func (r *MemoryAuditRepository) Create(_ context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.s.mu.Lock()
	r.s.audit = append(r.s.audit, *entry)
	r.s.mu.Unlock()
	return nil
}
