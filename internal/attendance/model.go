// Package attendance reconciles daily roll calls: live per-student records
// until a day is finalized, then the immutable snapshot for that date.
package attendance

import (
	"errors"
	"fmt"
	"time"

	"nursingportal/internal/roster"
)

// DateLayout is the calendar date format accepted on input.
const DateLayout = "2006-01-02"

// snapshotDateLayout is the day-month-year form used in snapshot keys.
const snapshotDateLayout = "02-01-2006"

var (
	// ErrDayFinalized is returned when a finalized date is mutated.
	ErrDayFinalized = errors.New("attendance for this date is finalized")
	// ErrAlreadyFinalized is returned when a date is finalized a second time.
	ErrAlreadyFinalized = errors.New("attendance for this date was already submitted")
)

// Record is one (student, date) present/absent fact.
type Record struct {
	ID        string    `json:"id,omitempty"`
	StudentID string    `json:"student_id" validate:"required"`
	Date      string    `json:"date" validate:"required"`
	Present   bool      `json:"present"`
	MarkedAt  time.Time `json:"marked_at"`
	MarkedBy  string    `json:"marked_by"`
}

// Snapshot is the finalized attendance list for one date. Its Date is stored in the
// DD-MM-YYYY form of its key; every other date field in this package is YYYY-MM-DD.
type Snapshot struct {
	ID            string    `json:"id" validate:"required"`
	Date          string    `json:"date" validate:"required"`
	TakenBy       string    `json:"taken_by"`
	SubmittedAt   time.Time `json:"submitted_at"`
	TotalStudents int       `json:"total_students" validate:"gte=0"`
	PresentCount  int       `json:"present_count" validate:"gte=0"`
	AbsentCount   int       `json:"absent_count" validate:"gte=0"`
	Records       []Record  `json:"attendance_records" validate:"dive"`
	IsFinalized   bool      `json:"is_finalized"`
}

// Daily maps student ids to presence. Students without an entry are unmarked.
type Daily map[string]bool

// Day is the reconciled attendance for a date.
type Day struct {
	Date       string   `json:"date"`
	Finalized  bool     `json:"finalized"`
	Attendance Daily    `json:"attendance"`
	Records    []Record `json:"records"`
}

// View partitions the students enrolled on a date into present, absent and unmarked.
type View struct {
	Date          string           `json:"date"`
	Finalized     bool             `json:"finalized"`
	Present       []roster.Student `json:"present_students"`
	Absent        []roster.Student `json:"absent_students"`
	Unmarked      []roster.Student `json:"unmarked_students"`
	TotalEnrolled int              `json:"total_enrolled"`
	PresentCount  int              `json:"present_count"`
	AbsentCount   int              `json:"absent_count"`
	UnmarkedCount int              `json:"unmarked_count"`
	TakenBy       string           `json:"taken_by,omitempty"`
	SubmittedAt   *time.Time       `json:"submitted_at,omitempty"`
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(date string) (time.Time, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return day, nil
}

// FormatDateForID renders a day as DD-MM-YYYY.
func FormatDateForID(day time.Time) string {
	return day.Format(snapshotDateLayout)
}

// SnapshotKey is the document key of the finalized list for a day.
func SnapshotKey(day time.Time) string {
	return "attendance_" + FormatDateForID(day)
}

// RecordID is the composite key used for record upserts.
func RecordID(studentID, date string) string {
	return studentID + "_" + date
}

// Status summarizes whether a date has been finalized.
type Status struct {
	Date          string     `json:"date"`
	Finalized     bool       `json:"finalized"`
	TakenBy       string     `json:"taken_by,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	TotalStudents int        `json:"total_students"`
	PresentCount  int        `json:"present_count"`
	AbsentCount   int        `json:"absent_count"`
}
