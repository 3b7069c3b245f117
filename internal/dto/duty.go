package dto

// AssignDutyRequest places a doctor on a weekend on-call shift.
type AssignDutyRequest struct {
	DepartmentID string `json:"departmentId" validate:"required"`
	DoctorID     string `json:"doctorId" validate:"required"`
	WeekendDay   string `json:"weekendDay" validate:"required"`
	Shift        string `json:"shift" validate:"required"`
}

// ReassignDutyRequest edits an assignment; omitted fields keep their value.
type ReassignDutyRequest struct {
	DepartmentID *string `json:"departmentId" validate:"omitempty,min=1"`
	DoctorID     *string `json:"doctorId" validate:"omitempty,min=1"`
	WeekendDay   *string `json:"weekendDay"`
	Shift        *string `json:"shift"`
}

// DutyQuery carries raw queryDuty parameters; all are optional.
type DutyQuery struct {
	DepartmentID string `form:"departmentId"`
	DoctorID     string `form:"doctorId"`
	WeekendDay   string `form:"weekendDay"`
	Shift        string `form:"shift"`
}
