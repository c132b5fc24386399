package repository

import "errors"

var (
	// ErrInvalidDOI is returned when a model identifier is not a Zenodo
	// DOI.
	ErrInvalidDOI = errors.New("not a valid DOI")
	// ErrNoMetadata is returned when a record carries neither a v0 nor a
	// v1 model card.
	ErrNoMetadata = errors.New("no metadata found")
)
