package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nursingportal/internal/roster"
	"nursingportal/internal/validation"
)

// HistoryLimit bounds how many recent records a student history returns.
const HistoryLimit = 30

// Repository is the persistence contract for attendance.
type Repository interface {
	// GetSnapshot returns nil, nil when the date was never finalized.
	GetSnapshot(ctx context.Context, key string) (*Snapshot, error)
	// InsertSnapshot stores the snapshot only if its key is absent and reports whether it did.
	InsertSnapshot(ctx context.Context, snap Snapshot) (bool, error)
	// UpsertRecord writes the record keyed by (student, date) and returns the stored row.
	UpsertRecord(ctx context.Context, rec Record) (Record, error)
	RecordsForDate(ctx context.Context, date string) ([]Record, error)
	RecordsForStudent(ctx context.Context, studentID string, limit int) ([]Record, error)
	AllRecords(ctx context.Context) ([]Record, error)
}

// Service orchestrates attendance marking and reconciliation.
type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

// NewService creates a service.
func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// GetDailyAttendance returns the presence map for a date. A finalized snapshot is
// authoritative; otherwise live records are returned.
func (s *Service) GetDailyAttendance(ctx context.Context, date string) (Day, error) {
	day, err := ParseDate(date)
	if err != nil {
		return Day{}, validation.New(err.Error())
	}
	snap, err := s.repo.GetSnapshot(ctx, SnapshotKey(day))
	if err != nil {
		s.log.Error("load snapshot failed", zap.String("date", date), zap.Error(err))
		return Day{}, fmt.Errorf("load snapshot: %w", err)
	}
	if snap != nil && snap.IsFinalized {
		return Day{Date: date, Finalized: true, Attendance: Merge(snap, nil), Records: snap.Records}, nil
	}
	records, err := s.repo.RecordsForDate(ctx, date)
	if err != nil {
		s.log.Error("load records failed", zap.String("date", date), zap.Error(err))
		return Day{}, fmt.Errorf("load records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return Day{Date: date, Attendance: Merge(nil, records), Records: records}, nil
}

// SetAttendance marks one student present or absent for a date. Repeated calls
// keep a single record per (student, date). Finalized dates are read-only.
func (s *Service) SetAttendance(ctx context.Context, studentID, date string, present bool, markedBy string) (Record, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return Record{}, validation.New("student_id is required")
	}
	day, err := ParseDate(date)
	if err != nil {
		return Record{}, validation.New(err.Error())
	}
	snap, err := s.repo.GetSnapshot(ctx, SnapshotKey(day))
	if err != nil {
		return Record{}, fmt.Errorf("load snapshot: %w", err)
	}
	if snap != nil && snap.IsFinalized {
		return Record{}, ErrDayFinalized
	}

	rec, err := s.repo.UpsertRecord(ctx, Record{
		ID:        RecordID(studentID, date),
		StudentID: studentID,
		Date:      date,
		Present:   present,
		MarkedAt:  s.now(),
		MarkedBy:  markedBy,
	})
	if err != nil {
		s.log.Error("mark attendance failed", zap.String("student_id", studentID), zap.String("date", date), zap.Error(err))
		return Record{}, fmt.Errorf("mark attendance: %w", err)
	}
	s.log.Debug("attendance marked", zap.String("student_id", studentID), zap.String("date", date), zap.Bool("present", present))
	return rec, nil
}

// FinalizeDay freezes the attendance for a date. Every student in the roster is
// classified, missing entries count as absent. A date can be finalized once.
// A nil daily map finalizes whatever is currently recorded for the date.
func (s *Service) FinalizeDay(ctx context.Context, students []roster.Student, daily Daily, date, takenBy string) (Snapshot, error) {
	day, err := ParseDate(date)
	if err != nil {
		return Snapshot{}, validation.New(err.Error())
	}
	if daily == nil {
		current, err := s.GetDailyAttendance(ctx, date)
		if err != nil {
			return Snapshot{}, err
		}
		if current.Finalized {
			return Snapshot{}, ErrAlreadyFinalized
		}
		daily = current.Attendance
	}

	snap := NewSnapshot(day, students, daily, takenBy, s.now())
	inserted, err := s.repo.InsertSnapshot(ctx, snap)
	if err != nil {
		s.log.Error("finalize attendance failed", zap.String("date", date), zap.Error(err))
		return Snapshot{}, fmt.Errorf("finalize attendance: %w", err)
	}
	if !inserted {
		return Snapshot{}, ErrAlreadyFinalized
	}
	s.log.Info("attendance finalized",
		zap.String("date", date),
		zap.String("taken_by", takenBy),
		zap.Int("present", snap.PresentCount),
		zap.Int("absent", snap.AbsentCount))
	return snap, nil
}

// BuildAttendanceView partitions the students enrolled on the date.
func (s *Service) BuildAttendanceView(ctx context.Context, date string, students []roster.Student) (View, error) {
	day, err := ParseDate(date)
	if err != nil {
		return View{}, validation.New(err.Error())
	}
	snap, err := s.repo.GetSnapshot(ctx, SnapshotKey(day))
	if err != nil {
		return View{}, fmt.Errorf("load snapshot: %w", err)
	}
	var records []Record
	if snap == nil || !snap.IsFinalized {
		if records, err = s.repo.RecordsForDate(ctx, date); err != nil {
			return View{}, fmt.Errorf("load records: %w", err)
		}
	}
	return BuildView(day, students, snap, records), nil
}

// DayStatus reports whether the date is finalized and, if so, its tallies.
func (s *Service) DayStatus(ctx context.Context, date string) (Status, error) {
	day, err := ParseDate(date)
	if err != nil {
		return Status{}, validation.New(err.Error())
	}
	snap, err := s.repo.GetSnapshot(ctx, SnapshotKey(day))
	if err != nil {
		return Status{}, fmt.Errorf("load snapshot: %w", err)
	}
	st := Status{Date: date}
	if snap == nil || !snap.IsFinalized {
		return st, nil
	}
	at := snap.SubmittedAt
	st.Finalized = true
	st.TakenBy = snap.TakenBy
	st.SubmittedAt = &at
	st.TotalStudents = snap.TotalStudents
	st.PresentCount = snap.PresentCount
	st.AbsentCount = snap.AbsentCount
	return st, nil
}

// StudentHistory returns the most recent records for a student, newest first.
func (s *Service) StudentHistory(ctx context.Context, studentID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}
	records, err := s.repo.RecordsForStudent(ctx, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("load attendance history: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// StudentRate computes the attendance rate over all of a student's records.
func (s *Service) StudentRate(ctx context.Context, studentID string) (float64, error) {
	records, err := s.repo.RecordsForStudent(ctx, studentID, 0)
	if err != nil {
		return 0, fmt.Errorf("load attendance records: %w", err)
	}
	return Rate(records), nil
}

// AllRecords returns every live record, used by the stats recompute.
func (s *Service) AllRecords(ctx context.Context) ([]Record, error) {
	records, err := s.repo.AllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load attendance records: %w", err)
	}
	return records, nil
}

// IsFinalizedErr reports whether err signals a finalized date.
func IsFinalizedErr(err error) bool {
	return errors.Is(err, ErrDayFinalized) || errors.Is(err, ErrAlreadyFinalized)
}
