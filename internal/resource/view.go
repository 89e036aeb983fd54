package resource

import (
	"math"
	"sort"
	"strings"

	"nursingportal/internal/roster"
)

// Filter narrows a resource listing. Empty values and "all" disable a filter.
type Filter struct {
	Search   string
	Category string
	Level    string
}

// SortKey orders a listing.
type SortKey string

const (
	SortByDate      SortKey = "date"
	SortByTitle     SortKey = "title"
	SortByDownloads SortKey = "downloads"
	SortBySize      SortKey = "size"
)

// CategoryCount is one row of the category breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Count    int    `json:"count"`
	Percent  int    `json:"percent"`
}

// Matches reports whether r passes the filter. Search covers title,
// description, category, target level labels and rotations.
func (f Filter) Matches(r Resource) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" && !matchesSearch(r, term) {
		return false
	}
	if f.Category != "" && f.Category != "all" && r.Category != f.Category {
		return false
	}
	if f.Level != "" && f.Level != "all" && !contains(r.TargetLevels, f.Level) {
		return false
	}
	return true
}

func matchesSearch(r Resource, term string) bool {
	if strings.Contains(strings.ToLower(r.Title), term) ||
		strings.Contains(strings.ToLower(r.Description), term) ||
		strings.Contains(strings.ToLower(r.Category), term) {
		return true
	}
	for _, level := range r.TargetLevels {
		if strings.Contains(strings.ToLower(roster.LevelLabel(level)), term) {
			return true
		}
	}
	for _, rotation := range r.TargetRotations {
		if strings.Contains(strings.ToLower(rotation), term) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Apply filters then sorts. Ties keep input order.
func Apply(resources []Resource, f Filter, key SortKey) []Resource {
	out := make([]Resource, 0, len(resources))
	for _, r := range resources {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	var less func(a, b Resource) bool
	switch key {
	case SortByDate:
		less = func(a, b Resource) bool { return a.UploadedAt.After(b.UploadedAt) }
	case SortByTitle:
		less = func(a, b Resource) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortByDownloads:
		less = func(a, b Resource) bool { return a.DownloadCount > b.DownloadCount }
	case SortBySize:
		less = func(a, b Resource) bool { return a.Size > b.Size }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// CategoryBreakdown counts resources per known category, in display order,
// with each share of the total rounded to a whole percent.
func CategoryBreakdown(resources []Resource) []CategoryCount {
	counts := map[string]int{}
	for _, r := range resources {
		counts[r.Category]++
	}
	out := make([]CategoryCount, 0, len(Categories))
	for _, c := range Categories {
		cc := CategoryCount{Category: c, Label: CategoryLabel(c), Count: counts[c]}
		if len(resources) > 0 {
			cc.Percent = int(math.Round(float64(cc.Count) / float64(len(resources)) * 100))
		}
		out = append(out, cc)
	}
	return out
}
