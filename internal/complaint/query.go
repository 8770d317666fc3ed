package complaint

import (
	"strings"
)

// FilterAll is the dashboard sentinel meaning "no filter" for status and category.
const FilterAll = "all"

const RecentLimit = 5

type Filter struct {
	Status   string `json:"status,omitempty"`
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`

	// OwnerID restricts the result to one owner when non-zero. Set by ListForOwner only.
	OwnerID int64 `json:"-"`
}

// Normalize trims every field and clears the "all" sentinel.
func (f Filter) Normalize() Filter {
	f.Status = strings.TrimSpace(f.Status)
	if strings.EqualFold(f.Status, FilterAll) {
		f.Status = ""
	}
	f.Category = strings.TrimSpace(f.Category)
	if strings.EqualFold(f.Category, FilterAll) {
		f.Category = ""
	}
	f.Search = strings.TrimSpace(f.Search)
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// SearchPattern returns the lower-cased LIKE pattern for Search with wildcards escaped by '\'.
func (f Filter) SearchPattern() string {
	if f.Search == "" {
		return ""
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(f.Search))
	return "%" + escaped + "%"
}

type CategoryCount struct {
	Category string `json:"category" db:"category"`
	Count    int64  `json:"count" db:"count"`
}

type Stats struct {
	Total        int64           `json:"total"`
	Submitted    int64           `json:"submitted"`
	Acknowledged int64           `json:"acknowledged"`
	InProgress   int64           `json:"in_progress"`
	Resolved     int64           `json:"resolved"`
	Rejected     int64           `json:"rejected"`
	Pending      int64           `json:"pending"`
	ByCategory   []CategoryCount `json:"by_category"`
	Recent       []*Complaint    `json:"recent"`
}

// OwnerStats are the counters shown on a citizen's dashboard.
type OwnerStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Rejected   int64 `json:"rejected"`
}

// StatusCounts maps each status to its number of complaints. Missing keys count as zero.
type StatusCounts map[Status]int64

func (c StatusCounts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// Pending follows the dashboard convention: submitted and acknowledged complaints.
func (c StatusCounts) Pending() int64 {
	return c[StatusSubmitted] + c[StatusAcknowledged]
}

func (c StatusCounts) Stats() *Stats {
	return &Stats{
		Total:        c.Total(),
		Submitted:    c[StatusSubmitted],
		Acknowledged: c[StatusAcknowledged],
		InProgress:   c[StatusInProgress],
		Resolved:     c[StatusResolved],
		Rejected:     c[StatusRejected],
		Pending:      c.Pending(),
	}
}

func (c StatusCounts) OwnerStats() *OwnerStats {
	return &OwnerStats{
		Total:      c.Total(),
		Pending:    c.Pending(),
		InProgress: c[StatusInProgress],
		Resolved:   c[StatusResolved],
		Rejected:   c[StatusRejected],
	}
}
