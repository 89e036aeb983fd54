// Package roster holds enrolled students and their denormalized summary stats.
package roster

import (
	"sort"
	"strings"
	"time"
)

// Nursing levels a student, resource or announcement can reference.
const (
	LevelFirstYear    = "first-year"
	LevelSecondYear   = "second-year"
	LevelThirdYear    = "third-year"
	LevelFourthYear   = "fourth-year"
	LevelPostgraduate = "postgraduate"
)

var levelLabels = map[string]string{
	LevelFirstYear:    "First Year",
	LevelSecondYear:   "Second Year",
	LevelThirdYear:    "Third Year",
	LevelFourthYear:   "Fourth Year",
	LevelPostgraduate: "Postgraduate",
}

// Levels lists the level values in display order.
var Levels = []string{LevelFirstYear, LevelSecondYear, LevelThirdYear, LevelFourthYear, LevelPostgraduate}

// ClinicalRotations lists the rotation assignments a student or resource may carry.
var ClinicalRotations = []string{
	"Medical Ward",
	"Surgical Ward",
	"ICU/Critical Care",
	"Emergency Department",
	"Pediatrics",
	"Obstetrics & Gynecology",
	"Psychiatry",
	"Community Health",
	"Operating Theatre",
	"Maternity Ward",
}

// LevelLabel returns the display label for a level, or the raw value when unknown.
func LevelLabel(level string) string {
	if label, ok := levelLabels[level]; ok {
		return label
	}
	return level
}

// ValidLevel reports whether level is a known nursing level.
func ValidLevel(level string) bool {
	_, ok := levelLabels[level]
	return ok
}

// ValidRotation reports whether rotation is a known clinical rotation.
func ValidRotation(rotation string) bool {
	for _, r := range ClinicalRotations {
		if r == rotation {
			return true
		}
	}
	return false
}

// Student is an enrolled nursing student. CreatedAt is the enrollment timestamp.
// The counters below it are caches recomputed from documents and attendance.
type Student struct {
	ID               string     `json:"id" validate:"required"`
	StudentID        string     `json:"student_id" validate:"required"`
	Name             string     `json:"name" validate:"required"`
	Email            string     `json:"email"`
	AcademicYear     string     `json:"academic_year"`
	Level            string     `json:"nursing_level" validate:"required"`
	ClinicalRotation string     `json:"clinical_rotation,omitempty"`
	TelegramID       string     `json:"telegram_id,omitempty"`
	PhoneNumber      string     `json:"phone_number,omitempty"`
	CreatedAt        time.Time  `json:"created_at" validate:"required"`
	LastActive       *time.Time `json:"last_active,omitempty"`

	DocumentCount        int     `json:"document_count"`
	OverallGrade         float64 `json:"overall_grade"`
	CompletedAssignments int     `json:"completed_assignments"`
	TotalAssignments     int     `json:"total_assignments"`
	AttendanceRate       float64 `json:"attendance_rate"`
}

// NewStudent is the input accepted by Add.
type NewStudent struct {
	StudentID        string `json:"student_id" validate:"required,max=64"`
	Name             string `json:"name" validate:"required,max=200"`
	Email            string `json:"email" validate:"required,email"`
	AcademicYear     string `json:"academic_year" validate:"required"`
	Level            string `json:"nursing_level" validate:"required,oneof=first-year second-year third-year fourth-year postgraduate"`
	ClinicalRotation string `json:"clinical_rotation"`
	TelegramID       string `json:"telegram_id"`
	PhoneNumber      string `json:"phone_number"`
}

// SortByName orders students by name, case-insensitively. The sort is stable.
func SortByName(students []Student) {
	sort.SliceStable(students, func(i, j int) bool {
		return strings.ToLower(students[i].Name) < strings.ToLower(students[j].Name)
	})
}

// Search keeps students whose name, student id or level contains term, ignoring case.
func Search(students []Student, term string) []Student {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return students
	}
	out := make([]Student, 0, len(students))
	for _, s := range students {
		if strings.Contains(strings.ToLower(s.Name), term) ||
			strings.Contains(strings.ToLower(s.StudentID), term) ||
			strings.Contains(strings.ToLower(s.Level), term) {
			out = append(out, s)
		}
	}
	return out
}

// Index maps student ids to students.
func Index(students []Student) map[string]Student {
	out := make(map[string]Student, len(students))
	for _, s := range students {
		out[s.StudentID] = s
	}
	return out
}
