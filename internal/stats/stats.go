// Package stats recomputes the per-student summary counters cached on the roster.
package stats

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nursingportal/internal/attendance"
	"nursingportal/internal/document"
	"nursingportal/internal/roster"
)

// Recompute returns copies of students with their document and attendance
// counters derived from docs and records. Students with no data get zeroes.
func Recompute(students []roster.Student, docs []document.Document, records []attendance.Record) []roster.Student {
	byStudent := map[string][]document.Document{}
	for _, d := range docs {
		byStudent[d.StudentID] = append(byStudent[d.StudentID], d)
	}
	rates := attendance.RatesByStudent(records)

	out := make([]roster.Student, len(students))
	for i, s := range students {
		own := byStudent[s.StudentID]
		perf := document.ComputePerformance(own)
		s.DocumentCount = len(own)
		s.OverallGrade = perf.OverallGrade
		s.CompletedAssignments = perf.CompletedAssignments
		s.TotalAssignments = perf.TotalAssignments
		s.AttendanceRate = rates[s.StudentID]
		out[i] = s
	}
	return out
}

type rosterStore interface {
	List(ctx context.Context) ([]roster.Student, error)
	SaveStats(ctx context.Context, students []roster.Student) error
}

type documentLister interface {
	List(ctx context.Context) ([]document.Document, error)
}

type recordLister interface {
	AllRecords(ctx context.Context) ([]attendance.Record, error)
}

// Refresher reloads everything and writes the recomputed counters back.
type Refresher struct {
	roster     rosterStore
	documents  documentLister
	attendance recordLister
	log        *zap.Logger
}

// NewRefresher wires a refresher over the roster, document and attendance services.
func NewRefresher(r rosterStore, d documentLister, a recordLister, log *zap.Logger) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Refresher{roster: r, documents: d, attendance: a, log: log}
}

// Refresh recomputes and saves every student's counters, returning the updated roster.
func (r *Refresher) Refresh(ctx context.Context) ([]roster.Student, error) {
	students, err := r.roster.List(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := r.documents.List(ctx)
	if err != nil {
		return nil, err
	}
	records, err := r.attendance.AllRecords(ctx)
	if err != nil {
		return nil, err
	}

	updated := Recompute(students, docs, records)
	if err := r.roster.SaveStats(ctx, updated); err != nil {
		return nil, fmt.Errorf("refresh stats: %w", err)
	}
	r.log.Info("student stats refreshed",
		zap.Int("students", len(updated)),
		zap.Int("documents", len(docs)),
		zap.Int("attendance_records", len(records)),
	)
	return updated, nil
}
