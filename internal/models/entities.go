package models

// Typed views of the synchronized entity kinds. The sync path itself only
// works with Record; these structs exist for domain validation and for the
// business layers that produce and consume synchronized data.

// Employee is a staff member managed through the portal.
type Employee struct {
	Syncable
	Name       string `json:"name"`
	Position   string `json:"position,omitempty"`
	Department string `json:"department,omitempty"`
}

// User is a portal account. PasswordHash, when present, is a bcrypt hash;
// credential issuance itself happens outside this service.
type User struct {
	Syncable
	Username     string `json:"username"`
	Role         string `json:"role,omitempty"`
	EmployeeID   string `json:"employeeId,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// DailyTimeRecord is one day of clock-in/clock-out punches for an employee.
// ClockIn and ClockOut are epoch milliseconds; zero means not punched.
type DailyTimeRecord struct {
	Syncable
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	ClockIn    int64  `json:"clockIn,omitempty"`
	ClockOut   int64  `json:"clockOut,omitempty"`
}

// TheoreticalShiftPattern is a reusable shift template.
type TheoreticalShiftPattern struct {
	Syncable
	Name         string `json:"name"`
	StartTime    string `json:"startTime,omitempty"`
	EndTime      string `json:"endTime,omitempty"`
	BreakMinutes int    `json:"breakMinutes,omitempty"`
}

// AssignedShift binds an employee to a pattern on a given date.
type AssignedShift struct {
	Syncable
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	PatternID  string `json:"patternId,omitempty"`
}

// ShiftReport is a supervisor logbook entry covering a period.
type ShiftReport struct {
	Syncable
	EmployeeID  string `json:"employeeId"`
	PeriodStart string `json:"periodStart,omitempty"`
	PeriodEnd   string `json:"periodEnd,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// AppSetting is a synchronized key/value configuration entry.
type AppSetting struct {
	Syncable
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}
