package models

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ValidateRecord applies the envelope rules shared by every kind, then the
// per-kind domain rules. A nil return means the record may be persisted.
func ValidateRecord(kind EntityKind, rec Record) error {
	if rec.ID == "" {
		return errors.New("record id is required")
	}
	if rec.LastModified <= 0 {
		return errors.New("lastModified must be a positive epoch-millisecond timestamp")
	}

	validate, ok := validators[kind]
	if !ok {
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	return validate(rec)
}

var validators = map[EntityKind]func(Record) error{
	KindEmployees:                validateEmployee,
	KindUsers:                    validateUser,
	KindDailyTimeRecords:         validateDailyTimeRecord,
	KindTheoreticalShiftPatterns: validateShiftPattern,
	KindAssignedShifts:           validateAssignedShift,
	KindShiftReports:             validateShiftReport,
	KindAppSettings:              validateAppSetting,
}

func validateEmployee(rec Record) error {
	var e Employee
	if err := rec.Decode(&e); err != nil {
		return fmt.Errorf("malformed employee record: %w", err)
	}
	if e.Name == "" {
		return errors.New("employee name is required")
	}
	return nil
}

func validateUser(rec Record) error {
	var u User
	if err := rec.Decode(&u); err != nil {
		return fmt.Errorf("malformed user record: %w", err)
	}
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return errors.New("passwordHash is not a valid bcrypt hash")
		}
	}
	return nil
}

func validateDailyTimeRecord(rec Record) error {
	var d DailyTimeRecord
	if err := rec.Decode(&d); err != nil {
		return fmt.Errorf("malformed daily time record: %w", err)
	}
	if d.EmployeeID == "" {
		return errors.New("daily time record employeeId is required")
	}
	if d.ClockOut != 0 && d.ClockOut < d.ClockIn {
		return errors.New("clockOut must not be before clockIn")
	}
	return nil
}

func validateShiftPattern(rec Record) error {
	var p TheoreticalShiftPattern
	if err := rec.Decode(&p); err != nil {
		return fmt.Errorf("malformed shift pattern record: %w", err)
	}
	if p.Name == "" {
		return errors.New("shift pattern name is required")
	}
	return nil
}

func validateAssignedShift(rec Record) error {
	var a AssignedShift
	if err := rec.Decode(&a); err != nil {
		return fmt.Errorf("malformed assigned shift record: %w", err)
	}
	if a.EmployeeID == "" {
		return errors.New("assigned shift employeeId is required")
	}
	if a.Date == "" {
		return errors.New("assigned shift date is required")
	}
	return nil
}

func validateShiftReport(rec Record) error {
	var s ShiftReport
	if err := rec.Decode(&s); err != nil {
		return fmt.Errorf("malformed shift report record: %w", err)
	}
	if s.EmployeeID == "" {
		return errors.New("shift report employeeId is required")
	}
	return nil
}

func validateAppSetting(rec Record) error {
	var s AppSetting
	if err := rec.Decode(&s); err != nil {
		return fmt.Errorf("malformed app setting record: %w", err)
	}
	if s.Key == "" {
		return errors.New("app setting key is required")
	}
	return nil
}
