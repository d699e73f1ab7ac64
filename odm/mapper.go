package odm

import (
	"context"
	"log/slog"

	"github.com/lgphp/activedoc/internal/naming"
)

// Mapper binds record types to a DocumentStore and drives the
// create/update/remove/reload lifecycle. A Mapper is safe for concurrent
// use; the records passed to it are not.
type Mapper struct {
	store  DocumentStore
	schema SchemaIntrospector
	logger *slog.Logger
}

// NewMapper creates a Mapper using the default struct-tag introspector.
// A nil logger falls back to slog.Default().
func NewMapper(store DocumentStore, logger *slog.Logger) *Mapper {
	return NewMapperWithSchema(store, NewStructIntrospector(), logger)
}

// NewMapperWithSchema creates a Mapper with a custom SchemaIntrospector,
// for record types whose fields are described by an explicit descriptor
// list rather than struct tags.
func NewMapperWithSchema(store DocumentStore, schema SchemaIntrospector, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		store:  store,
		schema: schema,
		logger: logger,
	}
}

// CollectionName returns the storage collection the record type maps to,
// derived from its type name.
func (m *Mapper) CollectionName(rec Object) string {
	return naming.Collection(m.schema.TypeName(rec))
}

// Create inserts the record as a new document. Every created_at,
// updated_at, and modified_at field is set to the current time and every
// lock_revision field to 1 before the snapshot is rebuilt and sent to the
// store. On success the record adopts the store-assigned identity and its
// fields are re-synchronized from the stored document.
//
// Reserved-field mutations happen before the store call and are not
// rolled back if it fails; snapshot the record first if the exact
// pre-call state matters.
func (m *Mapper) Create(ctx context.Context, rec Object) (bool, error) {
	fields, err := m.schema.DeclaredFields(rec)
	if err != nil {
		return false, err
	}

	ts := now()
	for _, f := range fields {
		switch ClassifyField(f.Name) {
		case RoleCreatedAt, RoleUpdatedAt, RoleModifiedAt:
			if err := m.schema.SetField(rec, f.Name, ts); err != nil {
				return false, err
			}
		case RoleRevision:
			if err := m.schema.SetField(rec, f.Name, int64(1)); err != nil {
				return false, err
			}
		}
	}

	doc, err := m.ToDocument(rec)
	if err != nil {
		return false, err
	}
	st := rec.state()
	st.doc = doc

	collection := m.CollectionName(rec)
	stored, err := m.store.Insert(ctx, collection, doc)
	if err != nil {
		return false, err
	}

	st.doc = stored
	if v, ok := stored.Get(IdentityKey); ok {
		if id, isStr := asString(v); isStr {
			st.id = ObjectID(id)
		}
	}
	if err := m.syncFromDocument(rec, st.doc); err != nil {
		return false, err
	}
	return true, nil
}

// Update replaces the record's stored document. The first updated_at or
// modified_at field in declaration order is set to the current time; at
// most one field is touched even if several qualify. The first
// lock_revision field is incremented and its prior value joins the
// identity in the update predicate.
//
// A record with no identity cannot be updated: Update returns false with
// a nil error. A lock_revision value that is not a positive integer
// returns false with ErrInvalidRevision before any store call. If a
// revision participated in the predicate and the store affected a number
// of documents other than one, Update returns ErrConcurrencyConflict.
func (m *Mapper) Update(ctx context.Context, rec Object) (bool, error) {
	st := rec.state()
	if st.IsNew() {
		return false, nil
	}
	fields, err := m.schema.DeclaredFields(rec)
	if err != nil {
		return false, err
	}
	collection := m.CollectionName(rec)

	predicate := NewDocument()
	touched := false
	withRevision := false
	for _, f := range fields {
		role := ClassifyField(f.Name)
		switch {
		case !touched && (role == RoleUpdatedAt || role == RoleModifiedAt):
			if err := m.schema.SetField(rec, f.Name, now()); err != nil {
				return false, err
			}
			touched = true

		case !withRevision && role == RoleRevision:
			current, err := m.schema.GetField(rec, f.Name)
			if err != nil {
				return false, err
			}
			prior, ok := parseRevision(current)
			if !ok || prior <= 0 {
				m.logger.Error("lock revision is not a positive integer",
					"collection", collection,
					"field", f.Name,
					"value", current,
				)
				return false, ErrInvalidRevision
			}
			if err := m.schema.SetField(rec, f.Name, prior+1); err != nil {
				return false, err
			}
			predicate.Set(f.Name, prior)
			withRevision = true
		}
	}
	predicate.Set(IdentityKey, st.id)

	doc, err := m.ToDocument(rec)
	if err != nil {
		return false, err
	}
	st.doc = doc

	ok, err := m.store.Update(ctx, collection, predicate, doc)
	if err != nil {
		return false, err
	}
	if withRevision && m.store.AffectedCount() != 1 {
		return ok, ErrConcurrencyConflict
	}
	return ok, nil
}

// Remove deletes the record's stored document. The first lock_revision
// field in declaration order, if any, must hold a positive integer and
// joins the identity in the remove predicate; no field is mutated.
//
// The record's snapshot and identity are cleared whatever the outcome of
// the store call. If a revision participated and the store affected a
// number of documents other than one, Remove returns
// ErrConcurrencyConflict. Without a revision field, a miss means another
// transaction already deleted the document: it is logged as a warning and
// the store's boolean result is returned as is.
func (m *Mapper) Remove(ctx context.Context, rec Object) (bool, error) {
	st := rec.state()
	if st.IsNew() {
		return false, nil
	}
	fields, err := m.schema.DeclaredFields(rec)
	if err != nil {
		return false, err
	}
	collection := m.CollectionName(rec)

	predicate := NewDocument()
	withRevision := false
	for _, f := range fields {
		if ClassifyField(f.Name) != RoleRevision {
			continue
		}
		current, err := m.schema.GetField(rec, f.Name)
		if err != nil {
			return false, err
		}
		revision, ok := parseRevision(current)
		if !ok || revision <= 0 {
			m.logger.Error("lock revision is not a positive integer",
				"collection", collection,
				"field", f.Name,
				"value", current,
			)
			return false, ErrInvalidRevision
		}
		predicate.Set(f.Name, revision)
		withRevision = true
		break
	}
	predicate.Set(IdentityKey, st.id)

	ok, removeErr := m.store.Remove(ctx, collection, predicate)

	// Local state is cleared whatever the store said.
	st.doc = NewDocument()
	st.id = ""

	if removeErr != nil {
		return false, removeErr
	}
	if m.store.AffectedCount() != 1 {
		if withRevision {
			return ok, ErrConcurrencyConflict
		}
		m.logger.Warn("document was deleted by another transaction",
			"collection", collection,
		)
	}
	return ok, nil
}

// Reload re-fetches the record's document by identity and synchronizes
// the typed fields from it, discarding unsaved changes. A record with no
// identity returns false with a nil error; a document deleted out-of-band
// returns false with ErrNotFound.
func (m *Mapper) Reload(ctx context.Context, rec Object) (bool, error) {
	st := rec.state()
	if st.IsNew() {
		return false, nil
	}

	predicate := NewDocument()
	predicate.Set(IdentityKey, st.id)

	doc, err := m.store.Find(ctx, m.CollectionName(rec), predicate)
	if err != nil {
		return false, err
	}
	st.doc = doc
	if err := m.syncFromDocument(rec, st.doc); err != nil {
		return false, err
	}
	return true, nil
}
