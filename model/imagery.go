package model

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Imagery is a stored area of interest
type Imagery struct {
	ID       any      `json:"id"`
	Name     string   `json:"name"`
	Geometry Geometry `json:"geometry"`
	Created  string   `json:"created,omitempty"`
	Modified string   `json:"modified,omitempty"`
	Updated  string   `json:"updated,omitempty"`
	UserID   *int64   `json:"user_id,omitempty"`
}

// ImageryFromRow converts a loosely typed record into an Imagery, tolerating
// geometry stored as JSON text
func ImageryFromRow(row map[string]any) (Imagery, error) {
	geometry, err := DecodeGeometry(row["geometry"])
	if err != nil {
		return Imagery{}, err
	}

	img := Imagery{
		ID:       row["id"],
		Name:     cast.ToString(row["name"]),
		Geometry: geometry,
		Created:  cast.ToString(row["created"]),
		Modified: cast.ToString(row["modified"]),
		Updated:  cast.ToString(row["updated"]),
	}
	if raw, ok := row["user_id"]; ok && raw != nil {
		if id, err := cast.ToInt64E(raw); err == nil {
			img.UserID = &id
		}
	}
	return img, nil
}

// SameID compares identifiers that may arrive as numbers or strings
func SameID(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	return cast.ToString(a) == cast.ToString(b)
}

// CreateImageryRequest registers a new area of interest
type CreateImageryRequest struct {
	Name     string `json:"name"`
	Geometry any    `json:"geometry"`
}

// Validate trims the name and checks that both fields are present
func (r *CreateImageryRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrMissingName
	}
	if r.Geometry == nil {
		return ErrMissingGeometry
	}
	return nil
}

// FinderRules narrows the imagery a finder accepts. Nil fields are unset.
type FinderRules struct {
	AISResolutionMaxCM *float64 `json:"ais_resolution_max_cm,omitempty"`
	AISResolutionMinCM *float64 `json:"ais_resolution_min_cm,omitempty"`
	EOResolutionMaxCM  *float64 `json:"eo_resolution_max_cm,omitempty"`
	EOResolutionMinCM  *float64 `json:"eo_resolution_min_cm,omitempty"`
	HSIResolutionMaxCM *float64 `json:"hsi_resolution_max_cm,omitempty"`
	HSIResolutionMinCM *float64 `json:"hsi_resolution_min_cm,omitempty"`
	RFResolutionMaxCM  *float64 `json:"rf_resolution_max_cm,omitempty"`
	RFResolutionMinCM  *float64 `json:"rf_resolution_min_cm,omitempty"`
	SARResolutionMaxCM *float64 `json:"sar_resolution_max_cm,omitempty"`
	SARResolutionMinCM *float64 `json:"sar_resolution_min_cm,omitempty"`
	CloudCoveragePct   *float64 `json:"cloud_coverage_pct,omitempty"`
}

// CreateFinderRequest creates an archive or feasibility finder
type CreateFinderRequest struct {
	Name      string       `json:"name"`
	StartDate string       `json:"start_date"`
	EndDate   string       `json:"end_date"`
	Geometry  any          `json:"geometry"`
	Rules     *FinderRules `json:"rules,omitempty"`
}

// Normalize trims the name and rewrites both dates as UTC ISO strings with
// milliseconds
func (r *CreateFinderRequest) Normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrMissingName
	}

	start, err := ToISOString(r.StartDate)
	if err != nil {
		return fmt.Errorf("start_date: %w", err)
	}
	end, err := ToISOString(r.EndDate)
	if err != nil {
		return fmt.Errorf("end_date: %w", err)
	}

	r.StartDate = start
	r.EndDate = end
	return nil
}

// ExecuteStudyRequest runs a study against an archive finder
type ExecuteStudyRequest struct {
	ArchiveFinderID int64  `json:"archive_finder_id"`
	StudyName       string `json:"study_name"`
}

// Validate checks that the finder and study are named
func (r *ExecuteStudyRequest) Validate() error {
	r.StudyName = strings.TrimSpace(r.StudyName)
	if r.ArchiveFinderID <= 0 {
		return fmt.Errorf("archive_finder_id must be positive: %w", ErrInvalidStudy)
	}
	if r.StudyName == "" {
		return fmt.Errorf("study_name is required: %w", ErrInvalidStudy)
	}
	return nil
}
