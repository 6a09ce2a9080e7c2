package table

import (
	"cmp"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Lookup returns the value found by following a dot-separated path into a
// row. Nested maps are walked by key and slices by numeric index. A missing
// segment yields (nil, false) rather than an error.
func Lookup(row Row, path string) (any, bool) {
	if row == nil {
		return nil, false
	}

	var current any = row
	for _, segment := range strings.Split(path, ".") {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// child resolves a single path segment against a container value
func child(container any, segment string) (any, bool) {
	switch c := container.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := c[segment]
		return v, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	}

	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	}
	return nil, false
}

// children returns the nested values of a record or list. Scalars, byte
// slices and times are leaves.
func children(value any) ([]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		out := make([]any, 0, len(v))
		for _, nested := range v {
			out = append(out, nested)
		}
		return out, true
	case []any:
		return v, true
	case []byte, time.Time, json.Number, string:
		return nil, false
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		out := make([]any, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out = append(out, iter.Value().Interface())
		}
		return out, true
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

// containsText reports whether any leaf under value contains query. query
// must already be lower-cased.
func containsText(value any, query string) bool {
	if isNil(value) {
		return false
	}
	if nested, ok := children(value); ok {
		for _, v := range nested {
			if containsText(v, query) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(toText(value)), query)
}

// valueIncludes is the per-column filter predicate
func valueIncludes(row Row, key, raw string) bool {
	target, _ := Lookup(row, key)
	if isNil(target) {
		return false
	}
	return containsText(target, strings.ToLower(raw))
}

// toText renders a leaf the way it is shown and searched
func toText(value any) string {
	s, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return s
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// sortKey is a value normalized for ordering
type sortKey struct {
	numeric bool
	num     float64
	text    string
}

// normalize maps numbers to float64, times to epoch milliseconds and
// everything else to its lower-cased string form; nil becomes ""
func normalize(value any) sortKey {
	if isNil(value) {
		return sortKey{}
	}

	switch v := value.(type) {
	case time.Time:
		return numericKey(float64(v.UnixMilli()))
	case *time.Time:
		return numericKey(float64(v.UnixMilli()))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return numericKey(f)
		}
		return sortKey{text: strings.ToLower(v.String())}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return numericKey(cast.ToFloat64(v))
	case string:
		return sortKey{text: strings.ToLower(v)}
	}
	return sortKey{text: strings.ToLower(toText(value))}
}

func numericKey(f float64) sortKey {
	return sortKey{numeric: true, num: f, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// rank groups keys so mixed columns still order consistently: empty values
// first, then numbers, then text
func (k sortKey) rank() int {
	switch {
	case k.numeric:
		return 1
	case k.text == "":
		return 0
	default:
		return 2
	}
}

// compareKeys orders two normalized values. Numbers compare numerically and
// text compares by its lower-cased form.
func compareKeys(a, b sortKey) int {
	if c := cmp.Compare(a.rank(), b.rank()); c != 0 {
		return c
	}
	if a.numeric {
		return cmp.Compare(a.num, b.num)
	}
	return strings.Compare(a.text, b.text)
}
