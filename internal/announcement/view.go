package announcement

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"nursingportal/internal/roster"
)

// Filter narrows an announcement listing. Empty values and "all" disable a filter.
type Filter struct {
	Search  string
	Type    string
	Status  string // read or unread
	Urgency string // urgent or normal
}

// SortKey orders a listing.
type SortKey string

const (
	SortByDate      SortKey = "date"
	SortByTitle     SortKey = "title"
	SortByType      SortKey = "type"
	SortByUrgent    SortKey = "urgent"
	SortByReadCount SortKey = "readCount"
)

// Stats summarizes an announcement collection.
type Stats struct {
	Total  int `json:"total"`
	Urgent int `json:"urgent"`
	Sent   int `json:"sent"`
	Unread int `json:"unread"`
}

// Matches reports whether a passes the filter.
func (f Filter) Matches(a Announcement) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(a.Title), term) && !strings.Contains(strings.ToLower(a.Message), term) {
			return false
		}
	}
	if f.Type != "" && f.Type != "all" && a.MessageType != f.Type {
		return false
	}
	switch f.Status {
	case "read":
		if len(a.ReadBy) == 0 {
			return false
		}
	case "unread":
		if len(a.ReadBy) > 0 {
			return false
		}
	}
	switch f.Urgency {
	case "urgent":
		if !a.Urgent {
			return false
		}
	case "normal":
		if a.Urgent {
			return false
		}
	}
	return true
}

// Apply filters then sorts. Unknown keys sort by date, newest first. Ties keep input order.
func Apply(list []Announcement, f Filter, key SortKey) []Announcement {
	out := make([]Announcement, 0, len(list))
	for _, a := range list {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	var less func(a, b Announcement) bool
	switch key {
	case SortByTitle:
		less = func(a, b Announcement) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortByType:
		less = func(a, b Announcement) bool { return a.MessageType < b.MessageType }
	case SortByUrgent:
		less = func(a, b Announcement) bool { return a.Urgent && !b.Urgent }
	case SortByReadCount:
		less = func(a, b Announcement) bool { return len(a.ReadBy) > len(b.ReadBy) }
	default:
		less = func(a, b Announcement) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// AudienceSize counts the students an announcement targets.
func AudienceSize(a Announcement, students []roster.Student) int {
	switch a.Audience {
	case AudienceAll:
		return len(students)
	case AudienceLevel:
		n := 0
		for _, s := range students {
			if contains(a.TargetLevels, s.Level) {
				n++
			}
		}
		return n
	case AudienceIndividual:
		return len(a.TargetStudents)
	default:
		return 0
	}
}

// ReadPercentage is readers over audience size, rounded to a whole percent. An empty audience yields 0.
func ReadPercentage(a Announcement, students []roster.Student) int {
	size := AudienceSize(a, students)
	if size == 0 {
		return 0
	}
	return int(math.Round(float64(len(a.ReadBy)) / float64(size) * 100))
}

// AudienceLabel describes the audience for display.
func AudienceLabel(a Announcement) string {
	switch a.Audience {
	case AudienceAll:
		return "All Students"
	case AudienceLevel:
		if len(a.TargetLevels) == 0 {
			return "Selected Levels"
		}
		labels := make([]string, 0, len(a.TargetLevels))
		for _, l := range a.TargetLevels {
			labels = append(labels, roster.LevelLabel(l))
		}
		return strings.Join(labels, ", ")
	case AudienceIndividual:
		n := len(a.TargetStudents)
		if n == 1 {
			return "1 Selected Student"
		}
		return strconv.Itoa(n) + " Selected Students"
	default:
		return "Unknown"
	}
}

// ResolveRecipients expands an audience into student ids using the roster.
// Explicit lists are kept as given, minus duplicates.
func ResolveRecipients(audience string, levels, explicit []string, students []roster.Student) []string {
	out := []string{}
	switch audience {
	case AudienceAll:
		for _, s := range students {
			out = append(out, s.StudentID)
		}
	case AudienceLevel:
		for _, s := range students {
			if contains(levels, s.Level) {
				out = append(out, s.StudentID)
			}
		}
	case AudienceIndividual:
		seen := map[string]bool{}
		for _, id := range explicit {
			if id != "" && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Summarize counts announcements by flag.
func Summarize(list []Announcement) Stats {
	st := Stats{Total: len(list)}
	for _, a := range list {
		if a.Urgent {
			st.Urgent++
		}
		if a.SentToTelegram {
			st.Sent++
		}
		if len(a.ReadBy) == 0 {
			st.Unread++
		}
	}
	return st
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
