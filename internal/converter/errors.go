package converter

import "errors"

var (
	// ErrMissingDirectives is returned when a metadata line or row is not a #key:value directive
	ErrMissingDirectives = errors.New("missing directive lines")

	// ErrSchemaMismatch is returned when the document shape does not match the profile's schema
	ErrSchemaMismatch = errors.New("document does not match schema")

	// ErrEmptyExport is returned when an export document has no content at all
	ErrEmptyExport = errors.New("empty export file")
)
