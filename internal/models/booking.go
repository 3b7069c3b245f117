package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingPaid      BookingStatus = "PAID"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// OccupyingStatuses are the states that consume slot capacity.
var OccupyingStatuses = []BookingStatus{BookingPending, BookingPaid, BookingCompleted}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending: {BookingPaid, BookingCancelled},
	BookingPaid:    {BookingCancelled, BookingCompleted},
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingPaid, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Occupies reports whether a booking in s counts toward slot occupancy.
func (s BookingStatus) Occupies() bool { return s.Valid() && s != BookingCancelled }

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool { return s == BookingCancelled || s == BookingCompleted }

// CanTransition reports whether from -> to is an edge of the lifecycle.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseBookingStatus is case-insensitive and accepts the CANCELED spelling.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if s == "CANCELED" {
		s = BookingCancelled
	}
	if !s.Valid() {
		return "", fmt.Errorf("invalid booking status %q", raw)
	}
	return s, nil
}

// Value implements driver.Valuer.
func (s BookingStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid booking status %q", string(s))
	}
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *BookingStatus) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan booking status: %w", err)
	}
	parsed, err := ParseBookingStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Booking is a patient's reservation of one seat in a weekly slot.
type Booking struct {
	ID           string        `db:"id" json:"id"`
	PatientID    string        `db:"patient_id" json:"patient_id"`
	DoctorID     string        `db:"doctor_id" json:"doctor_id"`
	DepartmentID string        `db:"department_id" json:"department_id"`
	ConditionID  string        `db:"condition_id" json:"condition_id"`
	Weekday      Weekday       `db:"weekday" json:"weekday"`
	TimeSlot     TimeSlot      `db:"timeslot" json:"timeslot"`
	Status       BookingStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Key returns the slot key the booking occupies.
func (b Booking) Key() SlotKey {
	return SlotKey{DoctorID: b.DoctorID, Weekday: b.Weekday, TimeSlot: b.TimeSlot}
}

// AppointmentAt is the start of the first weekday/timeslot occurrence at or
// after the booking was created, evaluated in loc.
func (b Booking) AppointmentAt(loc *time.Location) time.Time {
	return NextOccurrence(b.CreatedAt, b.Weekday, b.TimeSlot, loc)
}

// NextOccurrence returns the first start of (weekday, slot) at or after from.
func NextOccurrence(from time.Time, weekday Weekday, slot TimeSlot, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := from.In(loc)
	days := (int(weekday.Time()) - int(local.Weekday()) + 7) % 7
	start := time.Date(local.Year(), local.Month(), local.Day()+days, slot.StartHour(), 0, 0, 0, loc)
	if start.Before(local) {
		start = start.AddDate(0, 0, 7)
	}
	return start
}

// DoctorDayEntry is a booking as shown on a doctor's day schedule.
type DoctorDayEntry struct {
	Booking
	PatientName   string `db:"patient_name" json:"patient_name"`
	ConditionName string `db:"condition_name" json:"condition_name"`
	Cancelled     bool   `db:"-" json:"cancelled"`
}
