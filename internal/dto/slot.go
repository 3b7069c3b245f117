package dto

// DefineSlotRequest creates a weekly slot template. DepartmentID defaults to
// the doctor's department; Capacity defaults to 2.
type DefineSlotRequest struct {
	DoctorID     string `json:"doctorId" validate:"required"`
	DepartmentID string `json:"departmentId"`
	Weekday      int    `json:"weekday"`
	TimeSlot     string `json:"timeslot" validate:"required"`
	Capacity     *int   `json:"capacity"`
}

// ReviseSlotRequest updates a template; omitted fields keep their value.
type ReviseSlotRequest struct {
	DoctorID     *string `json:"doctorId" validate:"omitempty,min=1"`
	DepartmentID *string `json:"departmentId" validate:"omitempty,min=1"`
	Weekday      *int    `json:"weekday"`
	TimeSlot     *string `json:"timeslot"`
	Capacity     *int    `json:"capacity"`
}

// SlotQuery carries raw listSlots query parameters.
type SlotQuery struct {
	DoctorID     string `form:"doctorId"`
	DepartmentID string `form:"departmentId"`
	Weekday      string `form:"weekday"`
	TimeSlot     string `form:"timeslot"`
	Page         int    `form:"page"`
	PageSize     int    `form:"limit"`
}

// RemovedCount reports how many rows a bulk removal deleted.
type RemovedCount struct {
	Removed int `json:"removed"`
}
