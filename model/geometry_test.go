package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_NormalizeGeometry(t *testing.T) {
	polygon := Geometry{
		"type":        "Polygon",
		"coordinates": []any{[]any{[]any{0.0, 0.0}, []any{1.0, 0.0}, []any{1.0, 1.0}, []any{0.0, 0.0}}},
	}
	square := Geometry{
		"type": "Polygon",
		"coordinates": []any{[]any{
			[]any{9.75, 19.75},
			[]any{10.25, 19.75},
			[]any{10.25, 20.25},
			[]any{9.75, 20.25},
			[]any{9.75, 19.75},
		}},
	}
	point := Geometry{"type": "Point", "coordinates": []any{10.0, 20.0}}

	tests := []struct {
		name     string
		input    Geometry
		expected Geometry
	}{
		{"nil", nil, nil},
		{"polygon passes through", polygon, polygon},
		{"multipolygon passes through", Geometry{"type": "MultiPolygon", "coordinates": []any{}}, Geometry{"type": "MultiPolygon", "coordinates": []any{}}},
		{"unknown type passes through", Geometry{"type": "LineString"}, Geometry{"type": "LineString"}},
		{"point becomes square", point, square},
		{"feature unwrapped", Geometry{"type": "Feature", "geometry": point}, square},
		{
			"feature collection uses first feature",
			Geometry{"type": "FeatureCollection", "features": []any{
				map[string]any{"type": "Feature", "geometry": polygon},
				map[string]any{"type": "Feature", "geometry": point},
			}},
			polygon,
		},
		{"empty feature collection passes through", Geometry{"type": "FeatureCollection", "features": []any{}}, Geometry{"type": "FeatureCollection", "features": []any{}}},
		{"feature without geometry", Geometry{"type": "FeatureCollection", "features": []any{map[string]any{"type": "Feature"}}}, nil},
		{"malformed point passes through", Geometry{"type": "Point", "coordinates": []any{"x"}}, Geometry{"type": "Point", "coordinates": []any{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, NormalizeGeometry(tt.input, 0))
		})
	}
}

func Test_NormalizeGeometry_PointSize(t *testing.T) {
	got := NormalizeGeometry(Geometry{"type": "Point", "coordinates": []any{json.Number("1"), json.Number("2")}}, 1)

	ring := got["coordinates"].([]any)[0].([]any)
	require.Len(t, ring, 5)
	require.Equal(t, []any{0.0, 1.0}, ring[0])
	require.Equal(t, []any{2.0, 3.0}, ring[2])
	require.Equal(t, ring[0], ring[4], "ring should be closed")
}

func Test_DecodeGeometry(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected Geometry
		wantErr  bool
	}{
		{"nil", nil, nil, false},
		{"map", map[string]any{"type": "Point"}, Geometry{"type": "Point"}, false},
		{"string", `{"type":"Point","coordinates":[1,2]}`, Geometry{"type": "Point", "coordinates": []any{json.Number("1"), json.Number("2")}}, false},
		{"bytes", []byte(`{"type":"Polygon"}`), Geometry{"type": "Polygon"}, false},
		{"raw message", json.RawMessage(`{"type":"Polygon"}`), Geometry{"type": "Polygon"}, false},
		{"blank string", "  ", nil, false},
		{"json null", "null", nil, false},
		{"not json", "POINT(1 2)", nil, true},
		{"json array", "[1,2]", nil, true},
		{"unsupported type", 42, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeGeometry(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidGeometry)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}
