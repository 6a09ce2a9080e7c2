package service

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/hangxie/luna-browser/client"
	"github.com/hangxie/luna-browser/table"
)

// TablePage is the JSON form of one page of a table view
type TablePage struct {
	Collection  client.Collection `json:"collection"`
	Title       string            `json:"title"`
	Columns     []string          `json:"columns"`
	Rows        []table.Row       `json:"rows"`
	Page        int               `json:"page"`
	PageCount   int               `json:"page_count"`
	RowsPerPage int               `json:"rows_per_page"`
	RowCount    table.RowCount    `json:"row_count"`
	Pages       []table.PageItem  `json:"pages"`
	Sort        table.SortState   `json:"sort"`
	Search      string            `json:"search,omitempty"`
	Filters     map[string]string `json:"filters,omitempty"`
}

// NewTablePage snapshots the current state of view
func NewTablePage(collection client.Collection, view *table.View) TablePage {
	return TablePage{
		Collection:  collection,
		Title:       collection.Title(),
		Columns:     collection.Columns(),
		Rows:        view.Rows().Get(),
		Page:        view.PageNumber().Get(),
		PageCount:   view.PageCount().Get(),
		RowsPerPage: view.RowsPerPage().Get(),
		RowCount:    view.RowCount().Get(),
		Pages:       view.Pages().Get(),
		Sort:        view.SortState().Get(),
		Search:      view.SearchText(),
		Filters:     view.Filters(),
	}
}

// newView builds a table view over rows and applies the query parameters:
//
//	search=text          free-text search over every field
//	filter[key]=text     per-column substring filter, repeatable
//	sort=key             each occurrence cycles key like a header click
//	dir=asc|desc         sets the direction of the last sort key directly
//	per_page=n           page size
//	page=next|previous|n page to show, applied last
func (s *LunaService) newView(rows []table.Row, query url.Values) *table.View {
	view := table.New(rows, table.Options{RowsPerPage: s.rowsPerPage})

	if v := query.Get("per_page"); v != "" {
		view.SetRowsPerPage(table.CoerceRowsPerPage(v))
	}

	if v := query.Get("search"); v != "" {
		view.Search(v)
	}

	for _, key := range filterKeys(query) {
		view.Filter(query.Get("filter["+key+"]"), key)
	}

	if keys := query["sort"]; len(keys) > 0 {
		if dir := query.Get("dir"); dir != "" {
			view.SetSort(keys[len(keys)-1], table.ParseSortDirection(dir))
		} else {
			for _, key := range keys {
				view.Sort(key)
			}
		}
	}

	if v := query.Get("page"); v != "" {
		view.SetPage(table.ParsePageAction(v))
	}
	return view
}

// filterKeys returns the column names of filter[...] parameters, sorted so
// that filters apply in a stable order
func filterKeys(query url.Values) []string {
	var keys []string
	for param := range query {
		if !strings.HasPrefix(param, "filter[") || !strings.HasSuffix(param, "]") {
			continue
		}
		key := strings.TrimSuffix(strings.TrimPrefix(param, "filter["), "]")
		if key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// pageQuery returns the query string that shows page with the rest of the
// view state unchanged
func pageQuery(p TablePage, page int) string {
	q := stateQuery(p)
	q.Set("page", strconv.Itoa(page))
	return q.Encode()
}

// sortQuery returns the query string for clicking the header of key
func sortQuery(p TablePage, key string) string {
	q := stateQuery(p)
	direction := table.SortAscending
	if p.Sort.Key == key {
		switch p.Sort.Direction {
		case table.SortAscending:
			direction = table.SortDescending
		case table.SortDescending:
			direction = table.SortNone
		}
	}
	q.Del("sort")
	q.Del("dir")
	if direction != table.SortNone {
		q.Set("sort", key)
		q.Set("dir", direction.String())
	}
	return q.Encode()
}

// stateQuery encodes search, filters, sort and page size of p
func stateQuery(p TablePage) url.Values {
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	for key, value := range p.Filters {
		q.Set("filter["+key+"]", value)
	}
	if p.Sort.Active() {
		q.Set("sort", p.Sort.Key)
		q.Set("dir", p.Sort.Direction.String())
	}
	if p.RowsPerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.RowsPerPage))
	}
	return q
}
