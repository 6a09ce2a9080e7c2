package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// DefaultPointSize is the half-width, in degrees, of the square drawn
// around a Point
const DefaultPointSize = 0.25

// Geometry is a decoded GeoJSON object
type Geometry = map[string]any

// DecodeGeometry accepts a decoded GeoJSON object or its JSON text (string,
// []byte or json.RawMessage). Empty input decodes to nil.
func DecodeGeometry(raw any) (Geometry, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		return nil, fmt.Errorf("unsupported type %T: %w", raw, ErrInvalidGeometry)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var geometry Geometry
	if err := decoder.Decode(&geometry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return geometry, nil
}

// NormalizeGeometry turns whatever shape a location was stored in into
// something a map can draw: the first feature of a FeatureCollection, the
// geometry of a Feature, and a closed square Polygon for a Point. Polygon,
// MultiPolygon and unknown types are returned as they are. A pointSize of
// zero or less means DefaultPointSize.
func NormalizeGeometry(geometry Geometry, pointSize float64) Geometry {
	if geometry == nil {
		return nil
	}
	if pointSize <= 0 {
		pointSize = DefaultPointSize
	}

	if features, ok := geometry["features"].([]any); ok && len(features) > 0 {
		first, _ := features[0].(map[string]any)
		inner, _ := first["geometry"].(map[string]any)
		return NormalizeGeometry(inner, pointSize)
	}

	if inner, ok := geometry["geometry"].(map[string]any); ok && inner != nil {
		return NormalizeGeometry(inner, pointSize)
	}

	if geometry["type"] == "Point" {
		if lon, lat, ok := pointCoordinates(geometry["coordinates"]); ok {
			return squareAround(lon, lat, pointSize)
		}
	}

	return geometry
}

func pointCoordinates(raw any) (lon, lat float64, ok bool) {
	coords, isSlice := raw.([]any)
	if !isSlice || len(coords) < 2 {
		return 0, 0, false
	}
	lon, lonErr := cast.ToFloat64E(coords[0])
	lat, latErr := cast.ToFloat64E(coords[1])
	if lonErr != nil || latErr != nil {
		return 0, 0, false
	}
	return lon, lat, true
}

// squareAround builds a closed ring, counter-clockwise from the south-west
// corner
func squareAround(lon, lat, size float64) Geometry {
	ring := []any{
		[]any{lon - size, lat - size},
		[]any{lon + size, lat - size},
		[]any{lon + size, lat + size},
		[]any{lon - size, lat + size},
		[]any{lon - size, lat - size},
	}
	return Geometry{
		"type":        "Polygon",
		"coordinates": []any{ring},
	}
}
