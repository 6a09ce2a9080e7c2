package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ImageryFromRow(t *testing.T) {
	row := map[string]any{
		"id":       json.Number("7"),
		"name":     "Harbor",
		"geometry": `{"type":"Point","coordinates":[1,2]}`,
		"created":  "2025-01-01T00:00:00Z",
		"user_id":  json.Number("42"),
	}

	img, err := ImageryFromRow(row)
	require.NoError(t, err)
	require.Equal(t, json.Number("7"), img.ID)
	require.Equal(t, "Harbor", img.Name)
	require.Equal(t, "Point", img.Geometry["type"])
	require.Equal(t, "2025-01-01T00:00:00Z", img.Created)
	require.Empty(t, img.Updated)
	require.NotNil(t, img.UserID)
	require.Equal(t, int64(42), *img.UserID)

	_, err = ImageryFromRow(map[string]any{"geometry": "not json"})
	require.ErrorIs(t, err, ErrInvalidGeometry)

	img, err = ImageryFromRow(map[string]any{"id": 1})
	require.NoError(t, err)
	require.Nil(t, img.Geometry)
	require.Nil(t, img.UserID)
}

func Test_SameID(t *testing.T) {
	require.True(t, SameID(7, "7"))
	require.True(t, SameID(json.Number("12"), 12))
	require.True(t, SameID("abc", "abc"))
	require.False(t, SameID(7, 8))
	require.False(t, SameID(nil, nil))
	require.False(t, SameID(nil, ""))
}

func Test_CreateImageryRequest_Validate(t *testing.T) {
	req := CreateImageryRequest{Name: "  AOI  ", Geometry: map[string]any{"type": "Point"}}
	require.NoError(t, req.Validate())
	require.Equal(t, "AOI", req.Name)

	req = CreateImageryRequest{Name: " ", Geometry: "x"}
	require.ErrorIs(t, req.Validate(), ErrMissingName)

	req = CreateImageryRequest{Name: "AOI"}
	require.ErrorIs(t, req.Validate(), ErrMissingGeometry)
}

func Test_CreateFinderRequest_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		req       CreateFinderRequest
		wantErr   error
		wantStart string
		wantEnd   string
	}{
		{
			name:      "dates converted",
			req:       CreateFinderRequest{Name: " Port watch ", StartDate: "2025-01-01", EndDate: "2025-02-01T12:00:00+01:00"},
			wantStart: "2025-01-01T00:00:00.000Z",
			wantEnd:   "2025-02-01T11:00:00.000Z",
		},
		{
			name:    "missing name",
			req:     CreateFinderRequest{StartDate: "2025-01-01", EndDate: "2025-02-01"},
			wantErr: ErrMissingName,
		},
		{
			name:    "bad start date",
			req:     CreateFinderRequest{Name: "x", StartDate: "soon", EndDate: "2025-02-01"},
			wantErr: ErrInvalidDate,
		},
		{
			name:    "empty end date",
			req:     CreateFinderRequest{Name: "x", StartDate: "2025-01-01"},
			wantErr: ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Normalize()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "Port watch", req.Name)
			require.Equal(t, tt.wantStart, req.StartDate)
			require.Equal(t, tt.wantEnd, req.EndDate)
		})
	}
}

func Test_CreateFinderRequest_JSON(t *testing.T) {
	maxCloud := 20.0
	req := CreateFinderRequest{
		Name:      "finder",
		StartDate: "2025-01-01T00:00:00.000Z",
		EndDate:   "2025-02-01T00:00:00.000Z",
		Geometry:  map[string]any{"type": "Point"},
		Rules:     &FinderRules{CloudCoveragePct: &maxCloud},
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"name": "finder",
		"start_date": "2025-01-01T00:00:00.000Z",
		"end_date": "2025-02-01T00:00:00.000Z",
		"geometry": {"type": "Point"},
		"rules": {"cloud_coverage_pct": 20}
	}`, string(data))
}

func Test_ExecuteStudyRequest_Validate(t *testing.T) {
	req := ExecuteStudyRequest{ArchiveFinderID: 3, StudyName: " imagery_finder "}
	require.NoError(t, req.Validate())
	require.Equal(t, "imagery_finder", req.StudyName)

	req = ExecuteStudyRequest{StudyName: "imagery_finder"}
	require.ErrorIs(t, req.Validate(), ErrInvalidStudy)

	req = ExecuteStudyRequest{ArchiveFinderID: 3}
	require.ErrorIs(t, req.Validate(), ErrInvalidStudy)
}
