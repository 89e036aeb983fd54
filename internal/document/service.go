package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nursingportal/internal/objectstore"
	"nursingportal/internal/roster"
	"nursingportal/internal/validation"
)

// ErrNotFound is returned when a document id is unknown.
var ErrNotFound = errors.New("document not found")

// uploadParallelism bounds concurrent file uploads per request.
const uploadParallelism = 4

// Repository is the persistence contract for documents.
type Repository interface {
	// ListDocuments returns documents newest first. An empty studentID lists all.
	ListDocuments(ctx context.Context, studentID string) ([]Document, error)
	// GetDocument returns nil, nil when missing.
	GetDocument(ctx context.Context, id string) (*Document, error)
	InsertDocument(ctx context.Context, d Document) error
	DeleteDocument(ctx context.Context, id string) error
	SetGrade(ctx context.Context, id string, grade, maxGrade float64, feedback string, at time.Time) (bool, error)
	// ToggleStar flips the star flag and returns the new value.
	ToggleStar(ctx context.Context, id string) (bool, bool, error)
}

// File is one uploaded file awaiting storage.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Service handles document uploads, grading and listings.
type Service struct {
	repo     Repository
	objects  objectstore.Store
	maxBytes int64
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a document service. maxBytes caps each uploaded file.
func NewService(repo Repository, objects objectstore.Store, maxBytes int64, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, objects: objects, maxBytes: maxBytes, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// List returns every document, newest first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	docs, err := s.repo.ListDocuments(ctx, "")
	if err != nil {
		s.log.Error("load documents failed", zap.Error(err))
		return nil, fmt.Errorf("load documents: %w", err)
	}
	return docs, nil
}

// ForStudent returns one student's documents, newest first.
func (s *Service) ForStudent(ctx context.Context, studentID string) ([]Document, error) {
	docs, err := s.repo.ListDocuments(ctx, studentID)
	if err != nil {
		s.log.Error("load student documents failed", zap.String("student_id", studentID), zap.Error(err))
		return nil, fmt.Errorf("load student documents: %w", err)
	}
	return docs, nil
}

// StoragePath builds the object path for a student's file.
func StoragePath(st roster.Student, category, filename string, at time.Time) string {
	return fmt.Sprintf("student-documents/%s/%s_%s/%s/%d_%s",
		st.AcademicYear,
		objectstore.SanitizeName(st.Name),
		st.StudentID,
		category,
		at.UnixMilli(),
		objectstore.SanitizeName(filename))
}

// Upload stores each file and records it against the student. Files are
// validated up front; uploads then run concurrently and each file is tried
// even when another fails. On failure the documents that did land are
// returned alongside the first error.
func (s *Service) Upload(ctx context.Context, st roster.Student, category string, files []File) ([]Document, error) {
	if err := s.validateUpload(category, files); err != nil {
		return nil, err
	}

	slots := make([]*Document, len(files))
	var g errgroup.Group
	g.SetLimit(uploadParallelism)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			d, err := s.uploadOne(ctx, st, category, f)
			if err != nil {
				return err
			}
			slots[i] = &d
			return nil
		})
	}
	err := g.Wait()

	docs := make([]Document, 0, len(files))
	for _, d := range slots {
		if d != nil {
			docs = append(docs, *d)
		}
	}
	if err != nil {
		s.log.Warn("document upload incomplete", zap.String("student_id", st.StudentID), zap.Int("stored", len(docs)), zap.Int("files", len(files)), zap.Error(err))
		return docs, err
	}
	s.log.Info("documents uploaded", zap.String("student_id", st.StudentID), zap.String("category", category), zap.Int("files", len(docs)))
	return docs, nil
}

func (s *Service) validateUpload(category string, files []File) error {
	var problems []string
	if !ValidCategory(category) {
		problems = append(problems, "category must be one of "+strings.Join(Categories, ", "))
	}
	if len(files) == 0 {
		problems = append(problems, "at least one file is required")
	}
	for _, f := range files {
		if f.Size > s.maxBytes {
			problems = append(problems, fmt.Sprintf("%s exceeds the %s limit", f.Name, SizeLabel(s.maxBytes)))
		}
		if strings.TrimSpace(f.Name) == "" {
			problems = append(problems, "file name is required")
		}
	}
	if len(problems) > 0 {
		return validation.New(problems...)
	}
	return nil
}

// SizeLabel renders a byte limit for messages.
func SizeLabel(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

func (s *Service) uploadOne(ctx context.Context, st roster.Student, category string, f File) (Document, error) {
	at := s.now()
	path := StoragePath(st, category, f.Name, at)

	body, err := f.Open()
	if err != nil {
		return Document{}, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer body.Close()

	url, err := s.objects.Upload(ctx, path, body, f.Name, f.ContentType)
	if err != nil {
		s.log.Error("store document failed", zap.String("path", path), zap.Error(err))
		return Document{}, objectstore.Wrap(err)
	}

	d := Document{
		ID:           uuid.NewString(),
		Name:         f.Name,
		URL:          url,
		Size:         f.Size,
		Type:         f.ContentType,
		Category:     category,
		UploadedAt:   at,
		StoragePath:  path,
		StudentID:    st.StudentID,
		StudentName:  st.Name,
		AcademicYear: st.AcademicYear,
		Level:        st.Level,
	}
	if err := s.repo.InsertDocument(ctx, d); err != nil {
		s.log.Error("record document failed", zap.String("path", path), zap.Error(err))
		return Document{}, fmt.Errorf("record document: %w", err)
	}
	return d, nil
}

// Delete removes the stored file and then the record.
func (s *Service) Delete(ctx context.Context, id string) error {
	d, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if d == nil {
		return ErrNotFound
	}
	if err := s.objects.Delete(ctx, d.StoragePath); err != nil {
		s.log.Error("delete stored document failed", zap.String("id", id), zap.String("path", d.StoragePath), zap.Error(err))
		return objectstore.Wrap(err)
	}
	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		s.log.Error("delete document failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Grade records a grade. The grade must lie within [0, maxGrade] and maxGrade must be positive.
func (s *Service) Grade(ctx context.Context, id string, in GradeInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.Grade > in.MaxGrade {
		return validation.New("grade must not exceed max_grade")
	}
	ok, err := s.repo.SetGrade(ctx, id, in.Grade, in.MaxGrade, strings.TrimSpace(in.Feedback), s.now())
	if err != nil {
		s.log.Error("grade document failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("grade document: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// ToggleStar flips the starred flag and returns the new value.
func (s *Service) ToggleStar(ctx context.Context, id string) (bool, error) {
	starred, ok, err := s.repo.ToggleStar(ctx, id)
	if err != nil {
		s.log.Error("star document failed", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("star document: %w", err)
	}
	if !ok {
		return false, ErrNotFound
	}
	return starred, nil
}
