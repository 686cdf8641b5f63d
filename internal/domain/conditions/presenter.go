package conditions

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/emr/chart/pkg/pagination"
)

// Filter selects which clinical statuses the list shows.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterActive   Filter = StatusActive
	FilterInactive Filter = StatusInactive
)

// ParseFilter maps a query value to a Filter. Unknown or empty input yields
// the default, FilterActive.
func ParseFilter(s string) Filter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return FilterAll
	case StatusInactive:
		return FilterInactive
	default:
		return FilterActive
	}
}

// SortKey names the single active sort column.
type SortKey string

const (
	SortByDisplay SortKey = "display"
	SortByOnset   SortKey = "onset"
	SortByStatus  SortKey = "status"
)

func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "onset":
		return SortByOnset
	case "status":
		return SortByStatus
	default:
		return SortByDisplay
	}
}

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

func ParseSortDir(s string) SortDir {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return SortDesc
	}
	return SortAsc
}

// ListState holds the mutable UI state of one conditions list: the status
// filter, the active sort column, and the requested page. It is owned by a
// single list instance and mutated only through its setters, so the visible
// rows stay a deterministic function of (records, state).
type ListState struct {
	filter   Filter
	sortKey  SortKey
	dir      SortDir
	page     int
	pageSize int
}

// NewListState returns the default state: active-only filter, sorted by
// condition name ascending, first page.
func NewListState(pageSize int) *ListState {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &ListState{
		filter:   FilterActive,
		sortKey:  SortByDisplay,
		dir:      SortAsc,
		page:     1,
		pageSize: pageSize,
	}
}

func (s *ListState) Filter() Filter   { return s.filter }
func (s *ListState) SortKey() SortKey { return s.sortKey }
func (s *ListState) SortDir() SortDir { return s.dir }
func (s *ListState) Page() int        { return s.page }
func (s *ListState) PageSize() int    { return s.pageSize }

func (s *ListState) SetFilter(f Filter) {
	s.filter = f
}

// SetSort activates a sort column. Only one column is active at a time;
// switching columns replaces the previous comparator entirely.
func (s *ListState) SetSort(key SortKey, dir SortDir) {
	s.sortKey = key
	s.dir = dir
}

func (s *ListState) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	s.page = n
}

func (s *ListState) SetPageSize(n int) {
	if n <= 0 {
		n = pagination.DefaultPageSize
	}
	s.pageSize = n
}

// Apply retains the conditions matching the filter, preserving source order.
// FilterAll passes every record through. The input is never mutated and the
// result is always a fresh slice.
func Apply(records []*Condition, f Filter) []*Condition {
	out := make([]*Condition, 0, len(records))
	if f == FilterAll {
		return append(out, records...)
	}
	for _, c := range records {
		if c.ClinicalStatus == string(f) {
			out = append(out, c)
		}
	}
	return out
}

// Row is the display projection of a Condition: the record's fields plus a
// formatted onset string and the status copied verbatim.
type Row struct {
	ID           uuid.UUID  `json:"id"`
	Display      string     `json:"display"`
	Status       string     `json:"status"`
	Onset        *time.Time `json:"onset,omitempty"`
	OnsetDisplay string     `json:"onset_display"`
}

// RowBuilder turns Condition records into display rows for one locale.
type RowBuilder struct {
	// Layout is the long-form date layout for onset dates.
	Layout string
	// Placeholder is shown when a condition has no onset timestamp.
	Placeholder string
	// Locale drives name collation during sorting.
	Locale language.Tag
}

// Rows projects records to fresh display rows. Rows carry no state between
// recomputations; every call builds them anew from the current records.
func (b RowBuilder) Rows(records []*Condition) []Row {
	rows := make([]Row, 0, len(records))
	for _, c := range records {
		r := Row{
			ID:           c.ID,
			Display:      c.CodeDisplay,
			Status:       c.ClinicalStatus,
			Onset:        c.OnsetDatetime,
			OnsetDisplay: b.Placeholder,
		}
		if c.OnsetDatetime != nil {
			r.OnsetDisplay = c.OnsetDatetime.Format(b.Layout)
		}
		rows = append(rows, r)
	}
	return rows
}

// CompareOnset orders rows by onset instant. A missing onset on either side
// compares equal so those rows keep their relative pre-sort order.
func CompareOnset(a, b Row) int {
	if a.Onset == nil || b.Onset == nil {
		return 0
	}
	au, bu := a.Onset.UnixMilli(), b.Onset.UnixMilli()
	switch {
	case au < bu:
		return -1
	case au > bu:
		return 1
	default:
		return 0
	}
}

// CompareStatus orders rows lexicographically by status string.
func CompareStatus(a, b Row) int {
	return strings.Compare(a.Status, b.Status)
}

// SortRows stably sorts rows in place by the active column. Name comparison
// is locale- and case-aware; missing display labels compare as empty.
func SortRows(rows []Row, key SortKey, dir SortDir, locale language.Tag) {
	var cmp func(a, b Row) int
	switch key {
	case SortByOnset:
		cmp = CompareOnset
	case SortByStatus:
		cmp = CompareStatus
	default:
		col := collate.New(locale, collate.IgnoreCase)
		cmp = func(a, b Row) int {
			return col.CompareString(a.Display, b.Display)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := cmp(rows[i], rows[j])
		if dir == SortDesc {
			return c > 0
		}
		return c < 0
	})
}

// Outcome is the render state the caller branches on.
type Outcome string

const (
	OutcomeLoading       Outcome = "loading"
	OutcomeError         Outcome = "error"
	OutcomeEmpty         Outcome = "empty"
	OutcomeFilteredEmpty Outcome = "filtered_empty"
	OutcomeReady         Outcome = "ready"
)

// FetchResult is what the data source hands the presenter: the current known
// record set plus status flags.
type FetchResult struct {
	Records      []*Condition
	Err          error
	Loading      bool
	Revalidating bool
}

// View is one fully computed render of the list.
type View struct {
	Rows          []Row   `json:"rows"`
	Outcome       Outcome `json:"outcome"`
	Error         string  `json:"error,omitempty"`
	Total         int     `json:"total"`
	FilteredTotal int     `json:"filtered_total"`
	Page          int     `json:"page"`
	PageSize      int     `json:"page_size"`
	TotalPages    int     `json:"total_pages"`
	Revalidating  bool    `json:"revalidating,omitempty"`
}

// Present runs the full pipeline: filter, project, sort, paginate. It is a
// pure function of the fetch result and list state; nothing is cached across
// calls.
func Present(res FetchResult, st *ListState, b RowBuilder) View {
	if res.Loading && res.Records == nil {
		return View{Rows: []Row{}, Outcome: OutcomeLoading, Page: 1, PageSize: st.PageSize(), TotalPages: 1}
	}
	if res.Err != nil {
		return View{
			Rows:       []Row{},
			Outcome:    OutcomeError,
			Error:      fmt.Sprintf("fetching conditions: %v", res.Err),
			Page:       1,
			PageSize:   st.PageSize(),
			TotalPages: 1,
		}
	}

	filtered := Apply(res.Records, st.Filter())
	rows := b.Rows(filtered)
	SortRows(rows, st.SortKey(), st.SortDir(), b.Locale)

	pager := pagination.NewPager(len(rows), st.PageSize(), st.Page())
	view := View{
		Rows:          pagination.Slice(rows, pager),
		Total:         len(res.Records),
		FilteredTotal: len(filtered),
		Page:          pager.Page,
		PageSize:      pager.PageSize,
		TotalPages:    pager.TotalPages(),
		Revalidating:  res.Revalidating,
	}
	switch {
	case len(res.Records) == 0:
		view.Outcome = OutcomeEmpty
	case len(filtered) == 0:
		view.Outcome = OutcomeFilteredEmpty
	default:
		view.Outcome = OutcomeReady
	}
	return view
}
