package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nursingportal/internal/document"
	"nursingportal/internal/objectstore"
	"nursingportal/internal/roster"
	"nursingportal/internal/validation"
)

// ErrNotFound is returned when a resource id is unknown.
var ErrNotFound = errors.New("resource not found")

// Repository is the persistence contract for study resources.
type Repository interface {
	// ListResources returns resources newest first.
	ListResources(ctx context.Context) ([]Resource, error)
	// GetResource returns nil, nil when missing.
	GetResource(ctx context.Context, id string) (*Resource, error)
	InsertResource(ctx context.Context, r Resource) error
	DeleteResource(ctx context.Context, id string) error
	// IncrementDownloads bumps the counter and returns the new value.
	IncrementDownloads(ctx context.Context, id string) (int, bool, error)
}

// Service publishes and lists study resources.
type Service struct {
	repo     Repository
	objects  objectstore.Store
	maxBytes int64
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a resource service. maxBytes caps the uploaded file.
func NewService(repo Repository, objects objectstore.Store, maxBytes int64, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, objects: objects, maxBytes: maxBytes, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// List returns every resource, newest first.
func (s *Service) List(ctx context.Context) ([]Resource, error) {
	resources, err := s.repo.ListResources(ctx)
	if err != nil {
		s.log.Error("load resources failed", zap.Error(err))
		return nil, fmt.Errorf("load resources: %w", err)
	}
	return resources, nil
}

// StoragePath builds the object path for a resource file.
func StoragePath(filename string, at time.Time) string {
	return fmt.Sprintf("study-resources/%d-%s", at.UnixMilli(), objectstore.SanitizeName(filename))
}

// Upload validates the metadata and file, stores the file and records the resource.
func (s *Service) Upload(ctx context.Context, in NewResource, file *document.File, uploadedBy string) (Resource, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate(in, file); err != nil {
		return Resource{}, err
	}

	at := s.now()
	path := StoragePath(file.Name, at)
	body, err := file.Open()
	if err != nil {
		return Resource{}, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer body.Close()

	url, err := s.objects.Upload(ctx, path, body, file.Name, file.ContentType)
	if err != nil {
		s.log.Error("store resource failed", zap.String("path", path), zap.Error(err))
		return Resource{}, objectstore.Wrap(err)
	}

	rotations := in.TargetRotations
	if rotations == nil {
		rotations = []string{}
	}
	res := Resource{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Description:     in.Description,
		FileName:        file.Name,
		URL:             url,
		Size:            file.Size,
		Type:            file.ContentType,
		Category:        in.Category,
		TargetLevels:    in.TargetLevels,
		TargetRotations: rotations,
		UploadedAt:      at,
		UploadedBy:      uploadedBy,
		StoragePath:     path,
	}
	if err := s.repo.InsertResource(ctx, res); err != nil {
		s.log.Error("record resource failed", zap.String("path", path), zap.Error(err))
		return Resource{}, fmt.Errorf("record resource: %w", err)
	}
	s.log.Info("resource published", zap.String("id", res.ID), zap.String("category", res.Category))
	return res, nil
}

func (s *Service) validate(in NewResource, file *document.File) error {
	var problems []string
	if err := validation.Struct(in); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			problems = append(problems, verr.Problems...)
		} else {
			return err
		}
	}
	if in.Category != "" && !ValidCategory(in.Category) {
		problems = append(problems, "category must be one of "+strings.Join(Categories, ", "))
	}
	for _, level := range in.TargetLevels {
		if !roster.ValidLevel(level) {
			problems = append(problems, fmt.Sprintf("unknown nursing level %q", level))
		}
	}
	for _, rotation := range in.TargetRotations {
		if !roster.ValidRotation(rotation) {
			problems = append(problems, fmt.Sprintf("unknown clinical rotation %q", rotation))
		}
	}
	switch {
	case file == nil:
		problems = append(problems, "a file is required")
	case file.Size > s.maxBytes:
		problems = append(problems, fmt.Sprintf("file size must be less than %s", document.SizeLabel(s.maxBytes)))
	}
	if len(problems) > 0 {
		return validation.New(problems...)
	}
	return nil
}

// Delete removes the stored file and then the record.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return fmt.Errorf("load resource: %w", err)
	}
	if res == nil {
		return ErrNotFound
	}
	if err := s.objects.Delete(ctx, res.StoragePath); err != nil {
		s.log.Error("delete stored resource failed", zap.String("id", id), zap.Error(err))
		return objectstore.Wrap(err)
	}
	if err := s.repo.DeleteResource(ctx, id); err != nil {
		s.log.Error("delete resource failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}

// RecordDownload increments the download counter and returns the new count.
func (s *Service) RecordDownload(ctx context.Context, id string) (int, error) {
	n, ok, err := s.repo.IncrementDownloads(ctx, id)
	if err != nil {
		s.log.Error("record download failed", zap.String("id", id), zap.Error(err))
		return 0, fmt.Errorf("record download: %w", err)
	}
	if !ok {
		return 0, ErrNotFound
	}
	return n, nil
}
