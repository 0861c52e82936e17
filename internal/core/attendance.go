package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AttendanceSchemaVersion is the current layout of a persisted AttendanceSheet.
// Bump it when the JSON shape changes and teach the loader to upgrade.
const AttendanceSchemaVersion = 1

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
	Late    AttendanceStatus = "late"
)

// AttendanceStatus is one student's mark for one day.
type AttendanceStatus string

// AttendanceSheet is the monthly attendance grid of a group: student id to
// day of month to status.
type AttendanceSheet struct {
	SchemaVersion int                                 `json:"schema_version"`
	GroupID       string                              `json:"group_id"`
	Year          int                                 `json:"year"`
	Month         int                                 `json:"month"`
	Marks         map[string]map[int]AttendanceStatus `json:"marks"`
}

// AttendanceSummary counts marks within a period.
type AttendanceSummary struct {
	GroupID   string         `json:"group_id"`
	Period    Period         `json:"period"`
	Present   int            `json:"present"`
	Absent    int            `json:"absent"`
	Late      int            `json:"late"`
	ByStudent map[string]int `json:"absences_by_student,omitempty"`
}

var ErrInvalidAttendance = errors.New("invalid attendance status")

func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	switch AttendanceStatus(strings.ToLower(strings.TrimSpace(s))) {
	case Present:
		return Present, nil
	case Absent:
		return Absent, nil
	case Late:
		return Late, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAttendance, s)
}

// NewAttendanceSheet returns an empty sheet at the current schema version.
func NewAttendanceSheet(groupID string, year, month int) AttendanceSheet {
	return AttendanceSheet{
		SchemaVersion: AttendanceSchemaVersion,
		GroupID:       groupID,
		Year:          year,
		Month:         month,
		Marks:         map[string]map[int]AttendanceStatus{},
	}
}

// AttendanceKey is the state-store key of a group's sheet for a month.
func AttendanceKey(groupID string, year, month int) string {
	return fmt.Sprintf("attendance:%s:%04d-%02d", groupID, year, month)
}

// Mark records status for studentID on date. The date must fall in the
// sheet's month.
func (s *AttendanceSheet) Mark(studentID string, date time.Time, status AttendanceStatus) error {
	if strings.TrimSpace(studentID) == "" {
		return ErrEmptyStudent
	}
	if date.Year() != s.Year || int(date.Month()) != s.Month {
		return fmt.Errorf("%w: %s outside %04d-%02d", ErrInvalidDate, date.Format("2006-01-02"), s.Year, s.Month)
	}
	if _, err := ParseAttendanceStatus(string(status)); err != nil {
		return err
	}
	if s.Marks == nil {
		s.Marks = map[string]map[int]AttendanceStatus{}
	}
	days, ok := s.Marks[studentID]
	if !ok {
		days = map[int]AttendanceStatus{}
		s.Marks[studentID] = days
	}
	days[date.Day()] = status
	return nil
}
