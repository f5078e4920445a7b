package domain

import "errors"

var (
	// ErrCatalogueNotFound means the risk catalogue file does not exist.
	ErrCatalogueNotFound = errors.New("risk catalogue not found")
	// ErrCatalogueMalformed means the catalogue could not be parsed or had no usable entries.
	ErrCatalogueMalformed = errors.New("risk catalogue malformed")
	// ErrEmbedding aborts a detection call; no partial results are returned.
	ErrEmbedding = errors.New("embedding failure")
	// ErrGeneration marks a failed rewrite; callers fall back to review text.
	ErrGeneration = errors.New("rewrite generation failure")
	// ErrUnsupportedFormat is returned by ingestion for formats without an extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrReportNotFound is returned by repositories for unknown report ids.
	ErrReportNotFound = errors.New("report not found")
)
