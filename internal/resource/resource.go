// Package resource manages study materials published to students.
package resource

import (
	"time"
)

// Category values for study resources.
const (
	CategoryLectureNotes = "lecture-notes"
	CategoryStudyGuides  = "study-guides"
	CategoryTextbooks    = "textbooks"
	CategoryCaseStudies  = "case-studies"
	CategoryProcedures   = "procedures"
	CategoryAssessments  = "assessments"
	CategoryVideos       = "videos"
	CategoryResearch     = "research"
)

// Categories lists the category values in display order.
var Categories = []string{
	CategoryLectureNotes,
	CategoryStudyGuides,
	CategoryTextbooks,
	CategoryCaseStudies,
	CategoryProcedures,
	CategoryAssessments,
	CategoryVideos,
	CategoryResearch,
}

var categoryLabels = map[string]string{
	CategoryLectureNotes: "Lecture Notes",
	CategoryStudyGuides:  "Study Guides",
	CategoryTextbooks:    "Textbooks & References",
	CategoryCaseStudies:  "Case Studies",
	CategoryProcedures:   "Clinical Procedures",
	CategoryAssessments:  "Assessment Tools",
	CategoryVideos:       "Video Resources",
	CategoryResearch:     "Research Articles",
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

// Resource is a study file targeted at nursing levels and rotations.
type Resource struct {
	ID              string    `json:"id" validate:"required"`
	Title           string    `json:"title" validate:"required"`
	Description     string    `json:"description"`
	FileName        string    `json:"file_name" validate:"required"`
	URL             string    `json:"url" validate:"required"`
	Size            int64     `json:"size" validate:"gte=0"`
	Type            string    `json:"type"`
	Category        string    `json:"category" validate:"required"`
	TargetLevels    []string  `json:"target_levels"`
	TargetRotations []string  `json:"target_rotations"`
	UploadedAt      time.Time `json:"uploaded_at"`
	UploadedBy      string    `json:"uploaded_by"`
	StoragePath     string    `json:"storage_path" validate:"required"`
	DownloadCount   int       `json:"download_count" validate:"gte=0"`
}

// NewResource describes a resource to publish.
type NewResource struct {
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	Category        string   `json:"category" validate:"required"`
	TargetLevels    []string `json:"target_levels" validate:"required,min=1"`
	TargetRotations []string `json:"target_rotations"`
}
