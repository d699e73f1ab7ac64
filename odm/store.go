package odm

import "context"

// DocumentStore is the backend a Mapper persists documents to. The
// docstore package provides memory, SQLite, and DynamoDB implementations;
// any store that honors this contract can be plugged in.
//
// Writes report how many documents they affected; the count of the most
// recent write must stay queryable until the next write on the same
// store. The lifecycle's optimistic-lock check relies on it.
//
// Cancellation and timeouts are the store's responsibility, via the
// passed context.
type DocumentStore interface {
	// Insert stores a new document in the collection, assigning an
	// identity under IdentityKey if the document has none, and returns
	// the document as stored.
	Insert(ctx context.Context, collection string, doc *Document) (*Document, error)

	// Update replaces every document matching the predicate with doc,
	// preserving each matched document's identity. It returns whether at
	// least one document was replaced. A false return with a nil error
	// means nothing matched.
	Update(ctx context.Context, collection string, predicate, doc *Document) (bool, error)

	// Remove deletes every document matching the predicate and returns
	// whether at least one document was deleted.
	Remove(ctx context.Context, collection string, predicate *Document) (bool, error)

	// Find returns a document matching the predicate, or ErrNotFound.
	Find(ctx context.Context, collection string, predicate *Document) (*Document, error)

	// AffectedCount returns the number of documents affected by the most
	// recent Insert, Update, or Remove.
	AffectedCount() int64
}
