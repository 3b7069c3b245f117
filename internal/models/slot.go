package models

import (
	"fmt"
	"time"
)

// DefaultSlotCapacity applies when a slot is defined without a capacity.
const DefaultSlotCapacity = 2

// SlotKey identifies a recurring weekly slot.
type SlotKey struct {
	DoctorID string
	Weekday  Weekday
	TimeSlot TimeSlot
}

// String renders the key for lock registries and cache keys.
func (k SlotKey) String() string {
	return fmt.Sprintf("%s|%d|%s", k.DoctorID, int(k.Weekday), k.TimeSlot)
}

// WeeklySlot is a doctor's recurring availability in one timeslot of one weekday.
type WeeklySlot struct {
	ID           string    `db:"id" json:"id"`
	DoctorID     string    `db:"doctor_id" json:"doctor_id"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Weekday      Weekday   `db:"weekday" json:"weekday"`
	TimeSlot     TimeSlot  `db:"timeslot" json:"timeslot"`
	Capacity     int       `db:"capacity" json:"capacity"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Key returns the slot's uniqueness key.
func (s WeeklySlot) Key() SlotKey {
	return SlotKey{DoctorID: s.DoctorID, Weekday: s.Weekday, TimeSlot: s.TimeSlot}
}

// SlotFilter describes query params for listing slots.
type SlotFilter struct {
	DoctorID     string
	DepartmentID string
	Weekday      Weekday
	TimeSlot     TimeSlot
	Page         int
	PageSize     int
}

// SlotAvailability is a slot joined with its live occupancy.
type SlotAvailability struct {
	WeeklySlot
	DoctorName     string `db:"doctor_name" json:"doctor_name"`
	DoctorTitle    string `db:"doctor_title" json:"doctor_title"`
	DepartmentName string `db:"department_name" json:"department_name"`
	Occupied       int    `db:"occupied" json:"occupied"`
	Remaining      int    `db:"-" json:"remaining"`
	TimeRange      string `db:"-" json:"time_range"`
}

// Fill computes the derived fields from Capacity and Occupied.
func (a *SlotAvailability) Fill() {
	a.Remaining = a.Capacity - a.Occupied
	if a.Remaining < 0 {
		a.Remaining = 0
	}
	a.TimeRange = a.TimeSlot.Label()
}

// WeekSchedule is a doctor's Monday-Friday template grid.
type WeekSchedule struct {
	DoctorID string                    `json:"doctor_id"`
	Days     map[Weekday][]WeeklySlot `json:"days"`
}

// SlotPage is one page of a slot listing, cached as a unit.
type SlotPage struct {
	Items      []WeeklySlot `json:"items"`
	Pagination Pagination   `json:"pagination"`
}
