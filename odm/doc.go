// Package odm maps typed Go structs to documents in a schemaless
// document store, active-record style: typed fields synchronize both
// ways with an untyped ordered document, the collection name derives
// from the type name, and writes are guarded by an optimistic-lock
// revision counter.
//
// # Records
//
// A mapped type embeds [Record] and tags its fields with the document
// key they map to:
//
//	type UserAccountObject struct {
//		odm.Record
//		Name         string    `field:"name=name"`
//		CreatedAt    time.Time `field:"name=created_at"`
//		UpdatedAt    time.Time `field:"name=updated_at"`
//		LockRevision int64     `field:"name=lock_revision"`
//	}
//
// The collection name derives from the type name: UserAccountObject is
// stored in the user_account collection.
//
// # Reserved fields
//
// Field names are classified case-insensitively. created_at, updated_at,
// and modified_at fields are stamped with the current time on create;
// the first updated_at or modified_at field in declaration order is
// stamped again on every update. A lock_revision field starts at 1 on
// create, increments on every update, and its prior value is sent to the
// store as part of the write predicate.
//
// # Optimistic locking
//
// When a write carries a revision predicate and the store reports that a
// number of documents other than one was affected, the operation returns
// [ErrConcurrencyConflict]: another writer won the race, and the caller
// typically reloads and retries. A revision value that is not a positive
// integer fails locally with [ErrInvalidRevision] before any store call.
//
// # Stores
//
// Persistence goes through the [DocumentStore] interface. The docstore
// package provides memory, SQLite, and DynamoDB backends.
//
// # Errors
//
//   - [ErrNotFound] - no document matches the predicate
//   - [ErrInvalidRevision] - revision value is not a positive integer
//   - [ErrConcurrencyConflict] - another writer won the lock race
//   - [ErrNotStruct] - record is not a pointer to struct
//   - [ErrNoFields] - record type declares no mapped fields
//   - [ErrUnknownField] - field name not declared by the record type
//
// Store-layer errors pass through unmodified.
package odm
