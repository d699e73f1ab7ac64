package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lgphp/activedoc/odm"
)

// MemoryStore keeps every collection in memory. Data is lost when the
// process exits. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[odm.ObjectID]*odm.Document
	affected    int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[odm.ObjectID]*odm.Document),
	}
}

// Insert stores a copy of doc, assigning a fresh identity if the
// document has none, and returns the document as stored.
func (m *MemoryStore) Insert(_ context.Context, collection string, doc *odm.Document) (*odm.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := doc.Clone()
	id, ok := identityOf(stored)
	if !ok {
		id = odm.ObjectID(uuid.NewString())
		stored.Set(odm.IdentityKey, id)
	}

	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[odm.ObjectID]*odm.Document)
		m.collections[collection] = coll
	}
	coll[id] = stored
	m.affected = 1

	return stored.Clone(), nil
}

// Update replaces every document matching the predicate with doc,
// keeping each matched document's identity.
func (m *MemoryStore) Update(_ context.Context, collection string, predicate, doc *odm.Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, existing := range m.collections[collection] {
		if !matches(existing, predicate) {
			continue
		}
		replacement := doc.Clone()
		if _, ok := identityOf(replacement); !ok {
			replacement.Set(odm.IdentityKey, id)
		}
		m.collections[collection][id] = replacement
		n++
	}
	m.affected = n
	return n > 0, nil
}

// Remove deletes every document matching the predicate.
func (m *MemoryStore) Remove(_ context.Context, collection string, predicate *odm.Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, existing := range m.collections[collection] {
		if matches(existing, predicate) {
			delete(m.collections[collection], id)
			n++
		}
	}
	m.affected = n
	return n > 0, nil
}

// Find returns a copy of a document matching the predicate, or
// odm.ErrNotFound.
func (m *MemoryStore) Find(_ context.Context, collection string, predicate *odm.Document) (*odm.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, existing := range m.collections[collection] {
		if matches(existing, predicate) {
			return existing.Clone(), nil
		}
	}
	return nil, odm.ErrNotFound
}

// AffectedCount returns the number of documents affected by the most
// recent write.
func (m *MemoryStore) AffectedCount() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.affected
}

// matches reports whether every predicate key is present in doc with an
// equal value.
func matches(doc, predicate *odm.Document) bool {
	for _, key := range predicate.Keys() {
		want, _ := predicate.Get(key)
		have, ok := doc.Get(key)
		if !ok || !odm.ValuesEqual(want, have) {
			return false
		}
	}
	return true
}

// identityOf extracts the document's identity, if any.
func identityOf(doc *odm.Document) (odm.ObjectID, bool) {
	v, ok := doc.Get(odm.IdentityKey)
	if !ok {
		return "", false
	}
	switch id := v.(type) {
	case odm.ObjectID:
		return id, id != ""
	case string:
		return odm.ObjectID(id), id != ""
	default:
		return "", false
	}
}
