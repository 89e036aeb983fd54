package attendance

import (
	"math"
	"time"

	"nursingportal/internal/roster"
)

// Merge builds the presence map for a day. A finalized snapshot wins outright;
// otherwise the live records are used and unmarked students stay absent from the map.
func Merge(snapshot *Snapshot, records []Record) Daily {
	daily := Daily{}
	if snapshot != nil && snapshot.IsFinalized {
		for _, rec := range snapshot.Records {
			daily[rec.StudentID] = rec.Present
		}
		return daily
	}
	for _, rec := range records {
		daily[rec.StudentID] = rec.Present
	}
	return daily
}

// EnrolledBy keeps the students whose enrollment falls on or before the given day.
// A student enrolled at any time during the day counts as enrolled that day.
func EnrolledBy(students []roster.Student, day time.Time) []roster.Student {
	cutoff := day.AddDate(0, 0, 1)
	out := make([]roster.Student, 0, len(students))
	for _, s := range students {
		if s.CreatedAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// BuildView partitions the students enrolled by day. With a finalized snapshot every
// enrolled student is present or absent, defaulting to absent. Without one only
// students with a live record are classified and the rest are reported as unmarked.
func BuildView(day time.Time, students []roster.Student, snapshot *Snapshot, records []Record) View {
	enrolled := EnrolledBy(students, day)
	view := View{
		Date:          day.Format(DateLayout),
		Present:       []roster.Student{},
		Absent:        []roster.Student{},
		Unmarked:      []roster.Student{},
		TotalEnrolled: len(enrolled),
	}

	finalized := snapshot != nil && snapshot.IsFinalized
	daily := Merge(snapshot, records)
	if finalized {
		view.Finalized = true
		view.TakenBy = snapshot.TakenBy
		at := snapshot.SubmittedAt
		view.SubmittedAt = &at
	} else {
		for _, rec := range records {
			if rec.MarkedBy != "" {
				view.TakenBy = rec.MarkedBy
				break
			}
		}
	}

	for _, s := range enrolled {
		present, marked := daily[s.StudentID]
		switch {
		case present:
			view.Present = append(view.Present, s)
		case marked || finalized:
			view.Absent = append(view.Absent, s)
		default:
			view.Unmarked = append(view.Unmarked, s)
		}
	}

	roster.SortByName(view.Present)
	roster.SortByName(view.Absent)
	roster.SortByName(view.Unmarked)
	view.PresentCount = len(view.Present)
	view.AbsentCount = len(view.Absent)
	view.UnmarkedCount = len(view.Unmarked)
	return view
}

// NewSnapshot classifies every student of the roster for the day, defaulting to
// absent when the presence map has no entry.
func NewSnapshot(day time.Time, students []roster.Student, daily Daily, takenBy string, at time.Time) Snapshot {
	date := day.Format(DateLayout)
	snap := Snapshot{
		ID:            SnapshotKey(day),
		Date:          FormatDateForID(day),
		TakenBy:       takenBy,
		SubmittedAt:   at,
		TotalStudents: len(students),
		Records:       make([]Record, 0, len(students)),
		IsFinalized:   true,
	}
	for _, s := range students {
		present := daily[s.StudentID]
		snap.Records = append(snap.Records, Record{
			ID:        RecordID(s.StudentID, date),
			StudentID: s.StudentID,
			Date:      date,
			Present:   present,
			MarkedAt:  at,
			MarkedBy:  takenBy,
		})
		if present {
			snap.PresentCount++
		} else {
			snap.AbsentCount++
		}
	}
	return snap
}

// Rate is present days over recorded days as a percentage rounded to two
// decimals. No records yields 0.
func Rate(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}
	present := 0
	for _, rec := range records {
		if rec.Present {
			present++
		}
	}
	return round2(float64(present) / float64(len(records)) * 100)
}

// RatesByStudent groups records per student and computes each Rate.
func RatesByStudent(records []Record) map[string]float64 {
	grouped := map[string][]Record{}
	for _, rec := range records {
		grouped[rec.StudentID] = append(grouped[rec.StudentID], rec)
	}
	out := make(map[string]float64, len(grouped))
	for id, recs := range grouped {
		out[id] = Rate(recs)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
