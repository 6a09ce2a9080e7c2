package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/hangxie/luna-browser/table"
)

// Collection names a list that can be loaded into a table view
type Collection string

const (
	CollectionImagery     Collection = "imagery"
	CollectionArchive     Collection = "archive"
	CollectionFeasibility Collection = "feasibility"
	CollectionProviders   Collection = "providers"
)

// Collections lists every collection in display order
var Collections = []Collection{
	CollectionImagery,
	CollectionArchive,
	CollectionFeasibility,
	CollectionProviders,
}

// wrapperKeys are the object keys checked, in order, for a wrapped list
var wrapperKeys = []string{"results", "items", "data"}

// ParseCollection maps a name (any case) to a Collection
func ParseCollection(name string) (Collection, error) {
	c := Collection(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Collections {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// Title is the heading shown for the collection
func (c Collection) Title() string {
	switch c {
	case CollectionImagery:
		return "Areas of Interest"
	case CollectionArchive:
		return "Archive Finders"
	case CollectionFeasibility:
		return "Feasibility Finders"
	case CollectionProviders:
		return "Providers"
	}
	return string(c)
}

// Columns are the row keys shown by default, in order
func (c Collection) Columns() []string {
	switch c {
	case CollectionImagery:
		return []string{"id", "name", "created", "modified"}
	case CollectionArchive, CollectionFeasibility:
		return []string{"id", "name", "location.name", "start_date", "end_date", "created"}
	case CollectionProviders:
		return []string{"id", "name", "description"}
	}
	return nil
}

// List loads a collection as table rows
func (c *AugurClient) List(ctx context.Context, collection Collection) ([]table.Row, error) {
	var (
		data any
		err  error
	)
	switch collection {
	case CollectionImagery:
		data, err = c.Imagery(ctx)
	case CollectionArchive:
		data, err = c.ArchiveFinders(ctx)
	case CollectionFeasibility:
		data, err = c.FeasibilityFinders(ctx)
	case CollectionProviders:
		data, err = c.Providers(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if err != nil {
		return nil, err
	}
	return ToRows(data)
}

// ToRows converts a decoded list response into rows. It accepts a bare array
// or an object holding one under "results", "items" or "data". Elements that
// are not objects become {"value": element}.
func ToRows(data any) ([]table.Row, error) {
	if obj, ok := data.(map[string]any); ok {
		for _, key := range wrapperKeys {
			if list, ok := obj[key].([]any); ok {
				data = list
				break
			}
		}
	}

	list, ok := data.([]any)
	if !ok {
		if data == nil {
			return []table.Row{}, nil
		}
		return nil, fmt.Errorf("%w: got %T", ErrUnexpectedShape, data)
	}

	rows := make([]table.Row, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
			continue
		}
		rows = append(rows, table.Row{"value": item})
	}
	return rows, nil
}
