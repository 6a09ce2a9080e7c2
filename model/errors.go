package model

import "errors"

var (
	// ErrMissingName is returned when a create request has a blank name
	ErrMissingName = errors.New("name is required")

	// ErrMissingGeometry is returned when a create request carries no geometry
	ErrMissingGeometry = errors.New("geometry is required")

	// ErrInvalidGeometry is returned when geometry is not a GeoJSON object
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidDate is returned when a date string cannot be parsed
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidStudy is returned when a study execution request is incomplete
	ErrInvalidStudy = errors.New("invalid study request")
)
