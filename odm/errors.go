package odm

import "errors"

var (
	// ErrNotFound is returned when no document matches the given predicate.
	ErrNotFound = errors.New("activedoc: document not found")

	// ErrInvalidRevision is returned when a record declares a lock revision
	// field whose value is not a positive integer. It is raised before any
	// store call is made; the caller can fix the record and retry.
	ErrInvalidRevision = errors.New("activedoc: lock revision is not a positive integer")

	// ErrConcurrencyConflict is returned when an operation carried a lock
	// revision predicate and the store reports it affected a number of
	// documents other than one. Another writer won the optimistic-lock
	// race; callers typically reload and retry.
	ErrConcurrencyConflict = errors.New("activedoc: document was updated or deleted by another writer")

	// ErrNotStruct is returned when a record is not a non-nil pointer
	// to a struct.
	ErrNotStruct = errors.New("activedoc: record must be a non-nil pointer to struct")

	// ErrNoFields is returned when a record type declares no mapped fields.
	ErrNoFields = errors.New("activedoc: record type declares no mapped fields")

	// ErrUnknownField is returned when a field name is not declared by
	// the record type.
	ErrUnknownField = errors.New("activedoc: unknown field")
)
