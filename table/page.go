package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// maxPageButtons is the page count up to which every page is listed
const maxPageButtons = 7

// PageItem is one entry of a page window: a page number, or Ellipsis
type PageItem int

// Ellipsis marks a gap in a page window
const Ellipsis PageItem = 0

// IsEllipsis reports whether the item is a gap marker
func (p PageItem) IsEllipsis() bool {
	return p == Ellipsis
}

// String renders the item for display
func (p PageItem) String() string {
	if p.IsEllipsis() {
		return "…"
	}
	return strconv.Itoa(int(p))
}

// MarshalJSON encodes page numbers as numbers and gaps as null
func (p PageItem) MarshalJSON() ([]byte, error) {
	if p.IsEllipsis() {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, int64(p), 10), nil
}

// UnmarshalJSON accepts a number or null
func (p *PageItem) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*p = Ellipsis
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*p = PageItem(n)
	return nil
}

type pageActionKind int

const (
	actionNone pageActionKind = iota
	actionNext
	actionPrevious
	actionGoTo
)

// PageAction tells SetPage where to go. The zero value does nothing.
type PageAction struct {
	kind   pageActionKind
	target int
}

var (
	// NextPage moves one page forward, stopping at the last page
	NextPage = PageAction{kind: actionNext}

	// PreviousPage moves one page back, stopping at page 1
	PreviousPage = PageAction{kind: actionPrevious}

	// NoPageChange leaves the page untouched
	NoPageChange = PageAction{}
)

// GoToPage jumps to page n, clamped into the valid range
func GoToPage(n int) PageAction {
	return PageAction{kind: actionGoTo, target: n}
}

// ParsePageAction converts loosely typed input such as a query parameter or
// a decoded JSON value. "next" and "previous" map to their actions, numbers
// (or numeric strings) to GoToPage, and anything else (nil, NaN, garbage)
// to NoPageChange.
func ParsePageAction(value any) PageAction {
	switch v := value.(type) {
	case nil:
		return NoPageChange
	case PageAction:
		return v
	case bool:
		return NoPageChange
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return NoPageChange
		case "next":
			return NextPage
		case "previous", "prev":
			return PreviousPage
		}
	}

	f, err := cast.ToFloat64E(value)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return NoPageChange
	}
	f = math.Floor(f)
	if f > math.MaxInt32 {
		f = math.MaxInt32
	} else if f < math.MinInt32 {
		f = math.MinInt32
	}
	return GoToPage(int(f))
}

// CoerceRowsPerPage converts loosely typed input into a page size of at
// least 1. Non-numeric input yields 1.
func CoerceRowsPerPage(value any) int {
	f, err := cast.ToFloat64E(value)
	if err != nil || math.IsNaN(f) || f < 1 {
		return 1
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// pageCountFor returns max(1, ceil(total/perPage))
func pageCountFor(total, perPage int) int {
	if perPage < 1 {
		perPage = 1
	}
	count := (total + perPage - 1) / perPage
	if count < 1 {
		return 1
	}
	return count
}

// clampPage keeps page inside [1, count]
func clampPage(page, count int) int {
	if page > count {
		page = count
	}
	if page < 1 {
		page = 1
	}
	return page
}

// pageWindow returns the compressed list of page numbers shown in
// pagination controls: first, last, current±1 and ellipses for gaps
func pageWindow(current, total int) []PageItem {
	if total <= maxPageButtons {
		out := make([]PageItem, total)
		for i := range out {
			out[i] = PageItem(i + 1)
		}
		return out
	}

	windowStart := max(2, current-1)
	windowEnd := min(total-1, current+1)

	out := []PageItem{1}
	if windowStart > 2 {
		out = append(out, Ellipsis)
	}
	for i := windowStart; i <= windowEnd; i++ {
		out = append(out, PageItem(i))
	}
	if windowEnd < total-1 {
		out = append(out, Ellipsis)
	}
	return append(out, PageItem(total))
}

// rowCountFor describes which rows of total are on page
func rowCountFor(page, perPage, total int) RowCount {
	if total == 0 {
		return RowCount{}
	}
	start := (page-1)*perPage + 1
	return RowCount{
		Start: start,
		End:   min(start+perPage-1, total),
		Total: total,
	}
}
