package gocvot

import "errors"

var (
	// ErrMissingInput is returned when a required input file or document is
	// absent. Reconciliation cannot run without both the snapshot and the
	// session file.
	ErrMissingInput = errors.New("gocvot: required input missing")

	// ErrNoSections is returned when no section of the document matched the
	// schema's index keywords.
	ErrNoSections = errors.New("gocvot: no relevant sections found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("gocvot: invalid configuration")

	// ErrInvalidSchema is returned when the configured schema table is
	// malformed.
	ErrInvalidSchema = errors.New("gocvot: invalid schema")
)
