// Package document manages student submissions: upload, grading, starring and
// the filtered, sorted and grouped listings built from them.
package document

import (
	"time"
)

// Category values for student submissions.
const (
	CategoryAssignments     = "assignments"
	CategoryClinicalReports = "clinical-reports"
	CategoryCarePlans       = "care-plans"
	CategoryCaseStudies     = "case-studies"
	CategoryResearch        = "research"
	CategoryPresentations   = "presentations"
	CategoryPortfolios      = "portfolios"
)

// Categories lists the category values in display order.
var Categories = []string{
	CategoryAssignments,
	CategoryClinicalReports,
	CategoryCarePlans,
	CategoryCaseStudies,
	CategoryResearch,
	CategoryPresentations,
	CategoryPortfolios,
}

var categoryLabels = map[string]string{
	CategoryAssignments:     "Assignments",
	CategoryClinicalReports: "Clinical Reports",
	CategoryCarePlans:       "Care Plans",
	CategoryCaseStudies:     "Case Studies",
	CategoryResearch:        "Research Papers",
	CategoryPresentations:   "Presentations",
	CategoryPortfolios:      "Portfolios",
}

// CategoryLabel returns the display label for a category, or the raw value.
func CategoryLabel(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	return category
}

// ValidCategory reports whether category is known.
func ValidCategory(category string) bool {
	_, ok := categoryLabels[category]
	return ok
}

// Document is a file a student submitted.
type Document struct {
	ID           string     `json:"id" validate:"required"`
	Name         string     `json:"name" validate:"required"`
	URL          string     `json:"url" validate:"required"`
	Size         int64      `json:"size" validate:"gte=0"`
	Type         string     `json:"type"`
	Category     string     `json:"category" validate:"required"`
	UploadedAt   time.Time  `json:"uploaded_at"`
	StoragePath  string     `json:"storage_path" validate:"required"`
	StudentID    string     `json:"student_id" validate:"required"`
	StudentName  string     `json:"student_name"`
	AcademicYear string     `json:"academic_year"`
	Level        string     `json:"nursing_level"`
	Grade        *float64   `json:"grade,omitempty"`
	MaxGrade     *float64   `json:"max_grade,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	DateGraded   *time.Time `json:"date_graded,omitempty"`
	IsGraded     bool       `json:"is_graded"`
	IsStarred    bool       `json:"is_starred"`
}

// Percentage returns grade over max grade as a percentage. ok is false for
// ungraded documents or a missing or zero max grade.
func Percentage(d Document) (pct float64, ok bool) {
	if !d.IsGraded || d.Grade == nil || d.MaxGrade == nil || *d.MaxGrade <= 0 {
		return 0, false
	}
	return *d.Grade / *d.MaxGrade * 100, true
}

// GradeInput sets a grade on a document.
type GradeInput struct {
	Grade    float64 `json:"grade" validate:"gte=0"`
	MaxGrade float64 `json:"max_grade" validate:"gt=0"`
	Feedback string  `json:"feedback"`
}
