// Package announcement publishes notices to students, tracks who read them
// and keeps the direct instructor-to-student message thread.
package announcement

import (
	"time"
)

// Message types.
const (
	TypeAnnouncement = "announcement"
	TypeIndividual   = "individual"
	TypeResource     = "resource"
)

// Target audiences.
const (
	AudienceAll        = "all"
	AudienceLevel      = "level"
	AudienceIndividual = "individual"
)

// Announcement is a notice addressed to all students, some levels or a list of students.
type Announcement struct {
	ID             string    `json:"id" validate:"required"`
	Title          string    `json:"title" validate:"required"`
	Message        string    `json:"message" validate:"required"`
	MessageType    string    `json:"message_type" validate:"oneof=announcement individual resource"`
	Audience       string    `json:"target_audience" validate:"oneof=all level individual"`
	TargetLevels   []string  `json:"target_levels"`
	TargetStudents []string  `json:"target_students"`
	CreatedAt      time.Time `json:"created_at"`
	Urgent         bool      `json:"urgent"`
	SentToTelegram bool      `json:"sent_to_telegram"`
	ReadBy         []string  `json:"read_by"`
	CreatedBy      string    `json:"created_by"`
	ResourceID     string    `json:"resource_id,omitempty"`
}

// NewAnnouncement is the input for Send.
type NewAnnouncement struct {
	Title          string   `json:"title" validate:"required"`
	Message        string   `json:"message" validate:"required"`
	MessageType    string   `json:"message_type" validate:"omitempty,oneof=announcement individual resource"`
	Audience       string   `json:"target_audience" validate:"omitempty,oneof=all level individual"`
	TargetLevels   []string `json:"target_levels"`
	TargetStudents []string `json:"target_students"`
	Urgent         bool     `json:"urgent"`
	SendToTelegram bool     `json:"send_to_telegram"`
	ResourceID     string   `json:"resource_id"`
}

// Message is one entry of a student's direct message thread.
type Message struct {
	ID             string    `json:"id" validate:"required"`
	StudentID      string    `json:"student_id" validate:"required"`
	FromInstructor bool      `json:"from_instructor"`
	Message        string    `json:"message" validate:"required"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
	Urgent         bool      `json:"urgent"`
}
