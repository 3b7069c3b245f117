package dto

// RequestBookingRequest asks for a seat in a doctor's weekly slot. Patients
// may omit PatientID; administrators booking on behalf must set it.
type RequestBookingRequest struct {
	PatientID   string `json:"patientId"`
	DoctorID    string `json:"doctorId" validate:"required"`
	ConditionID string `json:"conditionId" validate:"required"`
	Weekday     int    `json:"weekday"`
	TimeSlot    string `json:"timeslot" validate:"required"`
}

// TimetableQuery narrows a condition timetable to one weekday.
type TimetableQuery struct {
	Weekday string `form:"weekday"`
}

// DoctorDayQuery selects the weekday of a doctor's day schedule.
type DoctorDayQuery struct {
	Weekday string `form:"weekday" binding:"required"`
}

// DoctorDayExportQuery selects the weekday and document format of a
// printable day sheet.
type DoctorDayExportQuery struct {
	Weekday string `form:"weekday" binding:"required"`
	Format  string `form:"format"`
}
