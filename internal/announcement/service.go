package announcement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nursingportal/internal/relay"
	"nursingportal/internal/roster"
	"nursingportal/internal/validation"
)

var (
	// ErrNotFound is returned when an announcement id is unknown.
	ErrNotFound = errors.New("announcement not found")
	// ErrRelayFailed is returned by Resend when no recipient accepted the message.
	ErrRelayFailed = errors.New("relay delivery failed")
)

// Repository is the persistence contract for announcements and direct messages.
type Repository interface {
	// ListAnnouncements returns announcements newest first.
	ListAnnouncements(ctx context.Context) ([]Announcement, error)
	// GetAnnouncement returns nil, nil when missing.
	GetAnnouncement(ctx context.Context, id string) (*Announcement, error)
	InsertAnnouncement(ctx context.Context, a Announcement) error
	DeleteAnnouncement(ctx context.Context, id string) (bool, error)
	// AddReader adds studentID to the read-by set. Adding an existing reader is a no-op.
	AddReader(ctx context.Context, id, studentID string) (bool, error)
	ListMessages(ctx context.Context, studentID string) ([]Message, error)
	InsertMessage(ctx context.Context, m Message) error
}

// Relayer hands an announcement to the external messaging relay.
type Relayer interface {
	Deliver(ctx context.Context, job relay.Job) (relay.Report, error)
}

// Service publishes announcements and direct messages.
type Service struct {
	repo    Repository
	relayer Relayer
	log     *zap.Logger
	now     func() time.Time
}

// NewService creates an announcement service. A nil relayer disables delivery.
func NewService(repo Repository, relayer Relayer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, relayer: relayer, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// List returns every announcement, newest first.
func (s *Service) List(ctx context.Context) ([]Announcement, error) {
	list, err := s.repo.ListAnnouncements(ctx)
	if err != nil {
		s.log.Error("load announcements failed", zap.Error(err))
		return nil, fmt.Errorf("load announcements: %w", err)
	}
	return list, nil
}

// Send validates and stores an announcement, then relays it when requested.
// The returned report is nil when nothing was relayed. Relay failures are logged
// and reported but never undo the stored announcement.
func (s *Service) Send(ctx context.Context, in NewAnnouncement, students []roster.Student, createdBy string) (Announcement, *relay.Report, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.MessageType == "" {
		in.MessageType = TypeAnnouncement
	}
	if in.MessageType == TypeIndividual {
		in.Audience = AudienceIndividual
	}
	if in.Audience == "" {
		in.Audience = AudienceAll
	}
	if err := validateNew(in, students); err != nil {
		return Announcement{}, nil, err
	}

	levels := in.TargetLevels
	if in.Audience != AudienceLevel || levels == nil {
		levels = []string{}
	}
	a := Announcement{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Message:        in.Message,
		MessageType:    in.MessageType,
		Audience:       in.Audience,
		TargetLevels:   levels,
		TargetStudents: ResolveRecipients(in.Audience, in.TargetLevels, in.TargetStudents, students),
		CreatedAt:      s.now(),
		Urgent:         in.Urgent,
		SentToTelegram: in.SendToTelegram,
		ReadBy:         []string{},
		CreatedBy:      createdBy,
		ResourceID:     in.ResourceID,
	}
	if err := s.repo.InsertAnnouncement(ctx, a); err != nil {
		s.log.Error("record announcement failed", zap.Error(err))
		return Announcement{}, nil, fmt.Errorf("record announcement: %w", err)
	}
	s.log.Info("announcement created",
		zap.String("id", a.ID),
		zap.String("audience", a.Audience),
		zap.Int("targets", len(a.TargetStudents)),
	)

	if !in.SendToTelegram || s.relayer == nil {
		return a, nil, nil
	}
	report, err := s.relayer.Deliver(ctx, JobFor(a, students))
	if err != nil {
		s.log.Warn("relay announcement failed", zap.String("id", a.ID), zap.Error(err))
		return a, nil, nil
	}
	return a, &report, nil
}

func validateNew(in NewAnnouncement, students []roster.Student) error {
	var problems []string
	if err := validation.Struct(in); err != nil {
		var verr *validation.Error
		if !errors.As(err, &verr) {
			return err
		}
		problems = append(problems, verr.Problems...)
	}
	switch in.Audience {
	case AudienceLevel:
		if len(in.TargetLevels) == 0 {
			problems = append(problems, "select at least one nursing level")
		}
		for _, level := range in.TargetLevels {
			if !roster.ValidLevel(level) {
				problems = append(problems, fmt.Sprintf("unknown nursing level %q", level))
			}
		}
	case AudienceIndividual:
		if len(in.TargetStudents) == 0 {
			problems = append(problems, "select at least one student")
		}
		known := roster.Index(students)
		for _, id := range in.TargetStudents {
			if _, ok := known[id]; !ok {
				problems = append(problems, fmt.Sprintf("unknown student %q", id))
			}
		}
	}
	if len(problems) > 0 {
		return validation.New(problems...)
	}
	return nil
}

// JobFor builds the relay job for an announcement. Recipients carry the
// student's Telegram id when the roster has one.
func JobFor(a Announcement, students []roster.Student) relay.Job {
	known := roster.Index(students)
	recipients := make([]relay.Recipient, 0, len(a.TargetStudents))
	for _, id := range a.TargetStudents {
		recipients = append(recipients, relay.Recipient{StudentID: id, TelegramID: known[id].TelegramID})
	}
	return relay.Job{
		AnnouncementID: a.ID,
		Title:          a.Title,
		Message:        a.Message,
		MessageType:    a.MessageType,
		Audience:       a.Audience,
		TargetLevels:   a.TargetLevels,
		TargetStudents: a.TargetStudents,
		Recipients:     recipients,
		Urgent:         a.Urgent,
	}
}

// Delete removes an announcement.
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.DeleteAnnouncement(ctx, id)
	if err != nil {
		s.log.Error("delete announcement failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete announcement: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Resend relays an existing announcement again without creating a new record.
func (s *Service) Resend(ctx context.Context, id string, students []roster.Student) (relay.Report, error) {
	a, err := s.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return relay.Report{}, fmt.Errorf("load announcement: %w", err)
	}
	if a == nil {
		return relay.Report{}, ErrNotFound
	}
	if s.relayer == nil {
		return relay.Report{}, fmt.Errorf("%w: relay is not configured", ErrRelayFailed)
	}
	report, err := s.relayer.Deliver(ctx, JobFor(*a, students))
	if err != nil {
		s.log.Error("resend announcement failed", zap.String("id", id), zap.Error(err))
		return relay.Report{}, fmt.Errorf("%w: %w", ErrRelayFailed, err)
	}
	if report.Attempted > 0 && report.Delivered == 0 && !report.Queued {
		return report, ErrRelayFailed
	}
	return report, nil
}

// MarkRead records that a student has read an announcement.
func (s *Service) MarkRead(ctx context.Context, id, studentID string) error {
	if strings.TrimSpace(studentID) == "" {
		return validation.New("student_id is required")
	}
	ok, err := s.repo.AddReader(ctx, id, studentID)
	if err != nil {
		s.log.Error("mark announcement read failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("mark read: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Messages returns a student's direct messages, newest first.
func (s *Service) Messages(ctx context.Context, studentID string) ([]Message, error) {
	msgs, err := s.repo.ListMessages(ctx, studentID)
	if err != nil {
		s.log.Error("load messages failed", zap.String("student_id", studentID), zap.Error(err))
		return nil, fmt.Errorf("load messages: %w", err)
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
	return msgs, nil
}

// SendMessage stores an instructor message to one student.
func (s *Service) SendMessage(ctx context.Context, studentID, text string, urgent bool) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, validation.New("message is required")
	}
	m := Message{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		FromInstructor: true,
		Message:        text,
		CreatedAt:      s.now(),
		Urgent:         urgent,
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		s.log.Error("record message failed", zap.String("student_id", studentID), zap.Error(err))
		return Message{}, fmt.Errorf("record message: %w", err)
	}
	return m, nil
}
