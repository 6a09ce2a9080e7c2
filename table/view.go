// Package table turns an in-memory list of loosely typed records into a
// searchable, filterable, sortable and paginated view.
//
// Every mutator recomputes all derived state before it returns, then
// notifies subscribers of the values that changed, in dependency order:
// filtered rows, sort, rows per page, page count, page, current rows, row
// count and page window. A View is meant for a single goroutine, the way a
// UI event loop uses it; distinct views share nothing.
package table

import (
	"slices"
	"strings"
)

// DefaultRowsPerPage is used when Options.RowsPerPage is left at zero
const DefaultRowsPerPage = 10

// Row is one opaque record. Values may be nested records, slices,
// primitives or nil.
type Row = map[string]any

// Options configures a View
type Options struct {
	// RowsPerPage is the page size. Zero means DefaultRowsPerPage; negative
	// values are raised to 1.
	RowsPerPage int

	// SearchKeys names the columns a caller considers searchable. It is
	// advisory: Search always scans every leaf of every row.
	SearchKeys []string
}

// SortDirection is the ordering applied to the sort column
type SortDirection int

const (
	// SortNone leaves rows in source order
	SortNone SortDirection = iota
	// SortAscending orders smallest first
	SortAscending
	// SortDescending orders largest first
	SortDescending
)

// String returns "asc", "desc" or ""
func (d SortDirection) String() string {
	switch d {
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	default:
		return ""
	}
}

// MarshalText encodes the direction as its String form
func (d SortDirection) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseSortDirection maps "asc"/"desc" (any case) to a direction; anything
// else is SortNone
func ParseSortDirection(s string) SortDirection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return SortAscending
	case "desc", "descending":
		return SortDescending
	default:
		return SortNone
	}
}

// next returns the direction after one more click on the same column
func (d SortDirection) next() SortDirection {
	switch d {
	case SortAscending:
		return SortDescending
	case SortDescending:
		return SortNone
	default:
		return SortAscending
	}
}

// SortState is the active sort column. Key is empty when Direction is
// SortNone.
type SortState struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// Active reports whether rows are being reordered
func (s SortState) Active() bool {
	return s.Key != "" && s.Direction != SortNone
}

// RowCount describes the rows shown on the current page, 1-based and
// inclusive. All fields are zero when there are no rows.
type RowCount struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Total int `json:"total"`
}

// View is a searchable, filterable, sortable, paginated view over a RowSet
type View struct {
	options Options
	source  []Row
	search  string
	filters map[string]string

	filtered    *cell[[]Row]
	sortState   *cell[SortState]
	rowsPerPage *cell[int]
	pageCount   *cell[int]
	page        *cell[int]
	rows        *cell[[]Row]
	rowCount    *cell[RowCount]
	pages       *cell[[]PageItem]
}

// New creates a view over rows
func New(rows []Row, opts Options) *View {
	switch {
	case opts.RowsPerPage == 0:
		opts.RowsPerPage = DefaultRowsPerPage
	case opts.RowsPerPage < 0:
		opts.RowsPerPage = 1
	}

	v := &View{
		options:     opts,
		source:      cloneRows(rows),
		filters:     make(map[string]string),
		filtered:    newCell([]Row{}),
		sortState:   newCell(SortState{}),
		rowsPerPage: newCell(opts.RowsPerPage),
		pageCount:   newCell(1),
		page:        newCell(1),
		rows:        newCell([]Row{}),
		rowCount:    newCell(RowCount{}),
		pages:       newCell([]PageItem{1}),
	}
	v.recompute()
	return v
}

// Options returns the options the view was built with, with defaults applied
func (v *View) Options() Options {
	return v.options
}

// Search sets the free-text query and goes back to page 1
func (v *View) Search(text string) {
	v.search = text
	v.page.store(1)
	v.recompute()
}

// SearchText returns the current free-text query
func (v *View) SearchText() string {
	return v.search
}

// Filter sets (or, with an empty value, clears) the filter on a column and
// goes back to page 1. An empty key is ignored.
func (v *View) Filter(value, key string) {
	if key == "" {
		return
	}
	v.filters[key] = value
	v.page.store(1)
	v.recompute()
}

// Filters returns a copy of the active column filters
func (v *View) Filters() map[string]string {
	out := make(map[string]string, len(v.filters))
	for k, val := range v.filters {
		if val != "" {
			out[k] = val
		}
	}
	return out
}

// Sort cycles the direction on key: ascending, descending, then off.
// Choosing a different key starts again at ascending. An empty key is
// ignored.
func (v *View) Sort(key string) {
	if key == "" {
		return
	}

	current := v.sortState.Get()
	direction := SortAscending
	if current.Key == key {
		direction = current.Direction.next()
	}
	v.SetSort(key, direction)
}

// SetSort sets the sort column and direction directly. SortNone or an empty
// key turns sorting off.
func (v *View) SetSort(key string, direction SortDirection) {
	state := SortState{Key: key, Direction: direction}
	if key == "" || direction == SortNone {
		state = SortState{}
	}
	v.sortState.store(state)
	v.recompute()
}

// SetRows replaces the backing rows and goes back to page 1. Search, filters
// and sort carry over.
func (v *View) SetRows(rows []Row) {
	v.source = cloneRows(rows)
	v.page.store(1)
	v.recompute()
}

// SetRowsPerPage changes the page size; values below 1 become 1
func (v *View) SetRowsPerPage(n int) {
	if n < 1 {
		n = 1
	}
	v.rowsPerPage.store(n)
	v.commit(v.filtered.Get())
}

// SetPage moves to another page as directed by action
func (v *View) SetPage(action PageAction) {
	current := v.page.Get()
	total := v.pageCount.Get()

	switch action.kind {
	case actionPrevious:
		v.page.store(max(1, current-1))
	case actionNext:
		v.page.store(min(total, current+1))
	case actionGoTo:
		v.page.store(clampPage(action.target, total))
	default:
		return
	}
	v.commit(v.filtered.Get())
}

// Rows is the current page of filtered rows
func (v *View) Rows() Readable[[]Row] { return v.rows }

// FilteredRows is every row that passed search and filters, in sort order
func (v *View) FilteredRows() Readable[[]Row] { return v.filtered }

// PageNumber is the 1-based current page
func (v *View) PageNumber() Readable[int] { return v.page }

// PageCount is max(1, ceil(filtered/rowsPerPage))
func (v *View) PageCount() Readable[int] { return v.pageCount }

// RowsPerPage is the page size
func (v *View) RowsPerPage() Readable[int] { return v.rowsPerPage }

// RowCount is the start/end/total summary of the current page
func (v *View) RowCount() Readable[RowCount] { return v.rowCount }

// Pages is the compressed page window for pagination controls
func (v *View) Pages() Readable[[]PageItem] { return v.pages }

// SortState is the active sort column and direction
func (v *View) SortState() Readable[SortState] { return v.sortState }

// recompute runs search, filters and sort over the source rows
func (v *View) recompute() {
	result := cloneRows(v.source)

	if query := strings.ToLower(strings.TrimSpace(v.search)); query != "" {
		result = slices.DeleteFunc(result, func(row Row) bool {
			return !containsText(row, query)
		})
	}

	if active := v.Filters(); len(active) > 0 {
		result = slices.DeleteFunc(result, func(row Row) bool {
			for key, value := range active {
				if !valueIncludes(row, key, value) {
					return true
				}
			}
			return false
		})
	}

	if state := v.sortState.Get(); state.Active() {
		keys := make([]sortKey, len(result))
		indexed := make([]int, len(result))
		for i, row := range result {
			indexed[i] = i
			value, _ := Lookup(row, state.Key)
			keys[i] = normalize(value)
		}
		slices.SortStableFunc(indexed, func(a, b int) int {
			c := compareKeys(keys[a], keys[b])
			if state.Direction == SortDescending {
				return -c
			}
			return c
		})
		sorted := make([]Row, len(result))
		for i, idx := range indexed {
			sorted[i] = result[idx]
		}
		result = sorted
	}

	v.commit(result)
}

// commit stores filtered rows, derives everything downstream and then
// notifies subscribers of what changed
func (v *View) commit(filtered []Row) {
	perPage := max(1, v.rowsPerPage.Get())
	count := pageCountFor(len(filtered), perPage)
	page := clampPage(v.page.Get(), count)

	start := (page - 1) * perPage
	end := min(start+perPage, len(filtered))
	current := make([]Row, 0, max(0, end-start))
	if start < end {
		current = append(current, filtered[start:end]...)
	}

	v.filtered.store(filtered)
	v.pageCount.store(count)
	v.page.store(page)
	v.rows.store(current)
	v.rowCount.store(rowCountFor(page, perPage, len(filtered)))
	v.pages.store(pageWindow(page, count))

	for _, c := range []notifier{v.filtered, v.sortState, v.rowsPerPage, v.pageCount, v.page, v.rows, v.rowCount, v.pages} {
		c.notify()
	}
}

// cloneRows copies the slice header so callers can't reorder our rows; the
// rows themselves are shared and never modified
func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}
