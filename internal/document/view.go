package document

import (
	"math"
	"sort"
	"strings"
	"time"

	"nursingportal/internal/roster"
)

// Filter values. Empty strings and "all" disable a filter.
const (
	GradedOnly     = "graded"
	UngradedOnly   = "ungraded"
	StarredOnly    = "starred"
	UnstarredOnly  = "unstarred"
	filterDisabled = "all"
)

// Filter narrows a document listing. All set filters must match.
type Filter struct {
	Search   string
	Category string
	Level    string
	Graded   string
	Starred  string
}

// SortKey orders a listing.
type SortKey string

const (
	SortByName    SortKey = "name"
	SortByStudent SortKey = "student"
	SortByDate    SortKey = "date"
	SortByGrade   SortKey = "grade"
)

// GroupKey buckets a listing.
type GroupKey string

const (
	GroupNone     GroupKey = "none"
	GroupYear     GroupKey = "year"
	GroupLetter   GroupKey = "letter"
	GroupStudent  GroupKey = "student"
	GroupLevel    GroupKey = "level"
	GroupCategory GroupKey = "category"
	GroupStatus   GroupKey = "status"
)

// AllDocumentsGroup names the single bucket produced without grouping.
const AllDocumentsGroup = "All Documents"

// Group is one named bucket of documents.
type Group struct {
	Name      string     `json:"name"`
	Documents []Document `json:"documents"`
}

// Stats summarizes a document collection.
type Stats struct {
	Total      int `json:"total"`
	Graded     int `json:"graded"`
	Ungraded   int `json:"ungraded"`
	Starred    int `json:"starred"`
	Categories int `json:"categories"`
	Students   int `json:"students"`
}

func enabled(v string) bool {
	return v != "" && v != filterDisabled
}

// Matches reports whether d passes every filter in f.
func (f Filter) Matches(d Document) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(d.Name), term) &&
			!strings.Contains(strings.ToLower(d.StudentName), term) &&
			!strings.Contains(strings.ToLower(d.StudentID), term) {
			return false
		}
	}
	if enabled(f.Category) && d.Category != f.Category {
		return false
	}
	if enabled(f.Level) && d.Level != f.Level {
		return false
	}
	switch f.Graded {
	case GradedOnly:
		if !d.IsGraded {
			return false
		}
	case UngradedOnly:
		if d.IsGraded {
			return false
		}
	}
	switch f.Starred {
	case StarredOnly:
		if !d.IsStarred {
			return false
		}
	case UnstarredOnly:
		if d.IsStarred {
			return false
		}
	}
	return true
}

// Apply filters then sorts. Ties keep the input order. An unknown sort key keeps input order.
func Apply(docs []Document, f Filter, key SortKey) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if f.Matches(d) {
			out = append(out, d)
		}
	}

	var less func(a, b Document) bool
	switch key {
	case SortByName:
		less = func(a, b Document) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortByStudent:
		less = func(a, b Document) bool { return strings.ToLower(a.StudentName) < strings.ToLower(b.StudentName) }
	case SortByDate:
		less = func(a, b Document) bool { return a.UploadedAt.After(b.UploadedAt) }
	case SortByGrade:
		less = func(a, b Document) bool { return sortGrade(a) > sortGrade(b) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// sortGrade places ungraded documents after every graded one.
func sortGrade(d Document) float64 {
	if pct, ok := Percentage(d); ok {
		return pct
	}
	return -1
}

// GroupBy splits docs into buckets in first-seen order. Every document lands in exactly one bucket.
func GroupBy(docs []Document, key GroupKey) []Group {
	if key == "" || key == GroupNone {
		return []Group{{Name: AllDocumentsGroup, Documents: append([]Document{}, docs...)}}
	}

	var groups []Group
	index := map[string]int{}
	for _, d := range docs {
		name := groupName(d, key)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Documents = append(groups[i].Documents, d)
	}
	if groups == nil {
		groups = []Group{}
	}
	return groups
}

func groupName(d Document, key GroupKey) string {
	switch key {
	case GroupYear:
		return d.AcademicYear
	case GroupLetter:
		for _, r := range d.StudentName {
			return strings.ToUpper(string(r))
		}
		return ""
	case GroupStudent:
		return d.StudentName
	case GroupLevel:
		return roster.LevelLabel(d.Level)
	case GroupCategory:
		return CategoryLabel(d.Category)
	case GroupStatus:
		if d.IsGraded {
			return "Graded"
		}
		return "Ungraded"
	default:
		return AllDocumentsGroup
	}
}

// Summarize counts documents by status.
func Summarize(docs []Document) Stats {
	st := Stats{Total: len(docs)}
	categories := map[string]struct{}{}
	students := map[string]struct{}{}
	for _, d := range docs {
		if d.IsGraded {
			st.Graded++
		} else {
			st.Ungraded++
		}
		if d.IsStarred {
			st.Starred++
		}
		categories[d.Category] = struct{}{}
		students[d.StudentID] = struct{}{}
	}
	st.Categories = len(categories)
	st.Students = len(students)
	return st
}

// CategoryPerformance is the graded average inside one category.
type CategoryPerformance struct {
	Category     string  `json:"category"`
	Label        string  `json:"label"`
	Graded       int     `json:"graded"`
	Total        int     `json:"total"`
	AverageGrade float64 `json:"average_grade"`
}

// Activity is one recent upload.
type Activity struct {
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name"`
	Date       time.Time `json:"date"`
	Completed  bool      `json:"completed"`
}

// Performance is the grade summary for one student's documents.
type Performance struct {
	OverallGrade         float64               `json:"overall_grade"`
	CompletedAssignments int                   `json:"completed_assignments"`
	TotalAssignments     int                   `json:"total_assignments"`
	ByCategory           []CategoryPerformance `json:"by_category"`
	RecentActivity       []Activity            `json:"recent_activity"`
}

// recentActivityLimit caps Performance.RecentActivity.
const recentActivityLimit = 3

// ComputePerformance totals points over graded documents. OverallGrade is
// the sum of grades over the sum of max grades, rounded to two decimals.
func ComputePerformance(docs []Document) Performance {
	var points, maxPoints float64
	perf := Performance{TotalAssignments: len(docs), ByCategory: []CategoryPerformance{}, RecentActivity: []Activity{}}

	type acc struct {
		graded, total int
		sum           float64
	}
	byCategory := map[string]*acc{}
	for _, d := range docs {
		a := byCategory[d.Category]
		if a == nil {
			a = &acc{}
			byCategory[d.Category] = a
		}
		a.total++
		if pct, ok := Percentage(d); ok {
			perf.CompletedAssignments++
			points += *d.Grade
			maxPoints += *d.MaxGrade
			a.graded++
			a.sum += pct
		}
	}
	if maxPoints > 0 {
		perf.OverallGrade = math.Round(points/maxPoints*100*100) / 100
	}

	for _, c := range Categories {
		a := byCategory[c]
		if a == nil {
			continue
		}
		cp := CategoryPerformance{Category: c, Label: CategoryLabel(c), Graded: a.graded, Total: a.total}
		if a.graded > 0 {
			cp.AverageGrade = a.sum / float64(a.graded)
		}
		perf.ByCategory = append(perf.ByCategory, cp)
	}

	recent := Apply(docs, Filter{}, SortByDate)
	if len(recent) > recentActivityLimit {
		recent = recent[:recentActivityLimit]
	}
	for _, d := range recent {
		perf.RecentActivity = append(perf.RecentActivity, Activity{DocumentID: d.ID, Name: d.Name, Date: d.UploadedAt, Completed: d.IsGraded})
	}
	return perf
}
