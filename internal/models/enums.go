package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday is a clinic working day, Monday (1) through Friday (5).
type Weekday int

const (
	Monday    Weekday = 1
	Tuesday   Weekday = 2
	Wednesday Weekday = 3
	Thursday  Weekday = 4
	Friday    Weekday = 5
)

// Weekdays lists the working days in order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// Valid reports whether w is in [1,5].
func (w Weekday) Valid() bool { return w >= Monday && w <= Friday }

// ParseWeekday accepts a day number or an English day name.
func ParseWeekday(raw string) (Weekday, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if w := Weekday(n); w.Valid() {
			return w, nil
		}
		return 0, fmt.Errorf("weekday %d out of range 1-5", n)
	}
	for _, w := range Weekdays {
		if strings.EqualFold(w.String(), raw) {
			return w, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", raw)
}

// Time maps w onto the standard library weekday.
func (w Weekday) Time() time.Weekday { return time.Weekday(int(w) % 7) }

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return w.Time().String()
}

// Value implements driver.Valuer.
func (w Weekday) Value() (driver.Value, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("weekday %d out of range 1-5", int(w))
	}
	return int64(w), nil
}

// Scan implements sql.Scanner.
func (w *Weekday) Scan(src interface{}) error {
	var n int64
	switch v := src.(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case []byte:
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scan weekday: %w", err)
		}
		n = parsed
	default:
		return fmt.Errorf("scan weekday: unsupported type %T", src)
	}
	if !Weekday(n).Valid() {
		return fmt.Errorf("scan weekday: %d out of range", n)
	}
	*w = Weekday(n)
	return nil
}

// TimeSlot is one of the eight one-hour bookable bands of a working day.
type TimeSlot string

const (
	SlotAM1 TimeSlot = "AM1"
	SlotAM2 TimeSlot = "AM2"
	SlotAM3 TimeSlot = "AM3"
	SlotAM4 TimeSlot = "AM4"
	SlotPM1 TimeSlot = "PM1"
	SlotPM2 TimeSlot = "PM2"
	SlotPM3 TimeSlot = "PM3"
	SlotPM4 TimeSlot = "PM4"
)

// TimeSlots lists the bands in chronological order.
var TimeSlots = []TimeSlot{SlotAM1, SlotAM2, SlotAM3, SlotAM4, SlotPM1, SlotPM2, SlotPM3, SlotPM4}

var slotStartHour = map[TimeSlot]int{
	SlotAM1: 8, SlotAM2: 9, SlotAM3: 10, SlotAM4: 11,
	SlotPM1: 14, SlotPM2: 15, SlotPM3: 16, SlotPM4: 17,
}

// Valid reports whether s is a known band.
func (s TimeSlot) Valid() bool {
	_, ok := slotStartHour[s]
	return ok
}

// ParseTimeSlot is case-insensitive.
func ParseTimeSlot(raw string) (TimeSlot, error) {
	s := TimeSlot(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid timeslot %q", raw)
	}
	return s, nil
}

// StartHour is the local hour the band begins.
func (s TimeSlot) StartHour() int { return slotStartHour[s] }

// Label renders the band as "08:00-09:00".
func (s TimeSlot) Label() string {
	h := s.StartHour()
	return fmt.Sprintf("%02d:00-%02d:00", h, h+1)
}

// Value implements driver.Valuer.
func (s TimeSlot) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid timeslot %q", string(s))
	}
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *TimeSlot) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan timeslot: %w", err)
	}
	parsed, err := ParseTimeSlot(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// WeekendDay is a day covered by the on-call duty roster.
type WeekendDay string

const (
	Saturday WeekendDay = "SATURDAY"
	Sunday   WeekendDay = "SUNDAY"
)

// Valid reports whether d is SATURDAY or SUNDAY.
func (d WeekendDay) Valid() bool { return d == Saturday || d == Sunday }

// ParseWeekendDay accepts the name or the ISO day number (6, 7).
func ParseWeekendDay(raw string) (WeekendDay, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SATURDAY", "6":
		return Saturday, nil
	case "SUNDAY", "7":
		return Sunday, nil
	}
	return "", fmt.Errorf("invalid weekend day %q", raw)
}

// Value implements driver.Valuer.
func (d WeekendDay) Value() (driver.Value, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekend day %q", string(d))
	}
	return string(d), nil
}

// Scan implements sql.Scanner.
func (d *WeekendDay) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan weekend day: %w", err)
	}
	parsed, err := ParseWeekendDay(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DutyShift is a weekend on-call shift.
type DutyShift string

const (
	ShiftMorning   DutyShift = "MORNING"
	ShiftAfternoon DutyShift = "AFTERNOON"
	ShiftNight     DutyShift = "NIGHT"
)

// Valid reports whether s is a known shift.
func (s DutyShift) Valid() bool {
	return s == ShiftMorning || s == ShiftAfternoon || s == ShiftNight
}

// ParseDutyShift is case-insensitive.
func ParseDutyShift(raw string) (DutyShift, error) {
	s := DutyShift(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid shift %q", raw)
	}
	return s, nil
}

// Value implements driver.Valuer.
func (s DutyShift) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid shift %q", string(s))
	}
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *DutyShift) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan shift: %w", err)
	}
	parsed, err := ParseDutyShift(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UserRole is the role asserted by the identity provider.
type UserRole string

const (
	RolePatient UserRole = "PATIENT"
	RoleDoctor  UserRole = "DOCTOR"
	RoleAdmin   UserRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RolePatient || r == RoleDoctor || r == RoleAdmin
}

// ParseUserRole is case-insensitive.
func ParseUserRole(raw string) (UserRole, error) {
	r := UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", raw)
	}
	return r, nil
}

func scanString(src interface{}) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported type %T", src)
	}
}
