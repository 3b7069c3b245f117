package models

import (
	"fmt"
	"time"
)

// DutyKey identifies an exclusive weekend on-call position.
type DutyKey struct {
	DepartmentID string
	WeekendDay   WeekendDay
	Shift        DutyShift
}

func (k DutyKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.DepartmentID, k.WeekendDay, k.Shift)
}

// DutyAssignment places one doctor on call for a department's weekend shift.
type DutyAssignment struct {
	ID           string     `db:"id" json:"id"`
	DepartmentID string     `db:"department_id" json:"department_id"`
	DoctorID     string     `db:"doctor_id" json:"doctor_id"`
	WeekendDay   WeekendDay `db:"weekend_day" json:"weekend_day"`
	Shift        DutyShift  `db:"shift" json:"shift"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Key returns the assignment's uniqueness key.
func (d DutyAssignment) Key() DutyKey {
	return DutyKey{DepartmentID: d.DepartmentID, WeekendDay: d.WeekendDay, Shift: d.Shift}
}

// DutyFilter combines optional criteria with logical AND.
type DutyFilter struct {
	DepartmentID string
	DoctorID     string
	WeekendDay   WeekendDay
	Shift        DutyShift
}
