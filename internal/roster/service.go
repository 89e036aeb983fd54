package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nursingportal/internal/validation"
)

var (
	// ErrNotFound is returned when a student id is unknown.
	ErrNotFound = errors.New("student not found")
	// ErrDuplicate is returned by repositories when the student id is taken.
	ErrDuplicate = errors.New("student id already exists")
)

// Repository is the persistence contract for students.
type Repository interface {
	ListStudents(ctx context.Context) ([]Student, error)
	// GetStudent returns nil, nil when no student has that id.
	GetStudent(ctx context.Context, studentID string) (*Student, error)
	InsertStudent(ctx context.Context, s Student) error
	UpdateStats(ctx context.Context, students []Student) error
}

// Service is the roster store used by the API and the other aggregators.
type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

// NewService creates a roster service backed by a repository.
func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// List returns every student ordered by name.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		s.log.Error("load students failed", zap.Error(err))
		return nil, fmt.Errorf("load students: %w", err)
	}
	SortByName(students)
	return students, nil
}

// Get returns a single student by student id.
func (s *Service) Get(ctx context.Context, studentID string) (Student, error) {
	st, err := s.repo.GetStudent(ctx, studentID)
	if err != nil {
		s.log.Error("load student failed", zap.String("student_id", studentID), zap.Error(err))
		return Student{}, fmt.Errorf("load student: %w", err)
	}
	if st == nil {
		return Student{}, ErrNotFound
	}
	return *st, nil
}

// Add validates and enrolls a new student. Enrollment time is assigned here.
func (s *Service) Add(ctx context.Context, in NewStudent) (Student, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.ClinicalRotation = strings.TrimSpace(in.ClinicalRotation)
	if err := validation.Struct(in); err != nil {
		return Student{}, err
	}
	if in.ClinicalRotation != "" && !ValidRotation(in.ClinicalRotation) {
		return Student{}, validation.New("clinical_rotation is not a known rotation")
	}

	st := Student{
		ID:               uuid.NewString(),
		StudentID:        in.StudentID,
		Name:             in.Name,
		Email:            in.Email,
		AcademicYear:     in.AcademicYear,
		Level:            in.Level,
		ClinicalRotation: in.ClinicalRotation,
		TelegramID:       strings.TrimSpace(in.TelegramID),
		PhoneNumber:      strings.TrimSpace(in.PhoneNumber),
		CreatedAt:        s.now(),
	}
	if err := s.repo.InsertStudent(ctx, st); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Student{}, validation.New(fmt.Sprintf("student id %s already exists", in.StudentID))
		}
		s.log.Error("add student failed", zap.String("student_id", in.StudentID), zap.Error(err))
		return Student{}, fmt.Errorf("add student: %w", err)
	}
	s.log.Info("student enrolled", zap.String("student_id", st.StudentID))
	return st, nil
}

// SaveStats writes recomputed summary counters back to the roster.
func (s *Service) SaveStats(ctx context.Context, students []Student) error {
	if len(students) == 0 {
		return nil
	}
	if err := s.repo.UpdateStats(ctx, students); err != nil {
		s.log.Error("save student stats failed", zap.Int("students", len(students)), zap.Error(err))
		return fmt.Errorf("save student stats: %w", err)
	}
	return nil
}
