package odm

// Record is the embeddable base for mapped types. It owns the record's
// identity and the last-synchronized document snapshot. Embed it as the
// first field of a struct and tag the remaining fields:
//
//	type UserAccountObject struct {
//		odm.Record
//		Name         string    `field:"name=name"`
//		CreatedAt    time.Time `field:"name=created_at"`
//		LockRevision int64     `field:"name=lock_revision"`
//	}
//
// A Record is not safe for concurrent mutation from multiple goroutines.
type Record struct {
	id  ObjectID
	doc *Document
}

// ObjectID returns the record's identity, or the zero ObjectID if the
// record has never been persisted.
func (r *Record) ObjectID() ObjectID {
	return r.id
}

// IsNew reports whether the record has no identity yet.
func (r *Record) IsNew() bool {
	return r.id == ""
}

// Document returns the last-synchronized document snapshot, or nil if the
// record was never synchronized. The snapshot is owned by the record;
// callers must not mutate it.
func (r *Record) Document() *Document {
	return r.doc
}

// state gives the mapper access to the embedded base.
func (r *Record) state() *Record {
	return r
}

// Object is implemented by every struct that embeds Record.
type Object interface {
	state() *Record
}
