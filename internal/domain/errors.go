package domain

import "errors"

// Pipeline error taxonomy. User-input problems are sentinel errors so
// the HTTP layer can map them to 400s; remote-service failures are
// wrapped with the underlying message and surface as 502s.
var (
	ErrMissingInput  = errors.New("missing required input")
	ErrEmptyDocument = errors.New("document contains no extractable text")
	ErrNoContent     = errors.New("no usable content after chunking")
	ErrEmptyQuestion = errors.New("question is empty after cleaning")
	ErrNoValidInput  = errors.New("no valid inputs to embed")
)
