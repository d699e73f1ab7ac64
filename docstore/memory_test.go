package docstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lgphp/activedoc/docstore"
	"github.com/lgphp/activedoc/odm"
)

func doc(pairs ...any) *odm.Document {
	d := odm.NewDocument()
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1])
	}
	return d
}

func TestMemoryStore_InsertAssignsIdentity(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()

	stored, err := s.Insert(ctx, "order", doc("item", "widget"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, ok := stored.Get(odm.IdentityKey)
	if !ok || id == odm.ObjectID("") {
		t.Error("expected a generated identity")
	}
	if s.AffectedCount() != 1 {
		t.Errorf("expected affected count 1, got %d", s.AffectedCount())
	}
}

func TestMemoryStore_InsertKeepsProvidedIdentity(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()

	stored, err := s.Insert(ctx, "order", doc(odm.IdentityKey, odm.ObjectID("fixed"), "item", "widget"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id, _ := stored.Get(odm.IdentityKey); id != odm.ObjectID("fixed") {
		t.Errorf("expected identity 'fixed', got %v", id)
	}
}

func TestMemoryStore_FindByPredicate(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()

	stored, _ := s.Insert(ctx, "order", doc("item", "widget", "count", int64(3)))
	id, _ := stored.Get(odm.IdentityKey)

	found, err := s.Find(ctx, "order", doc(odm.IdentityKey, id))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := found.Get("item"); v != "widget" {
		t.Errorf("expected item 'widget', got %v", v)
	}

	if _, err := s.Find(ctx, "order", doc(odm.IdentityKey, odm.ObjectID("missing"))); !errors.Is(err, odm.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Find(ctx, "empty_collection", doc("x", 1)); !errors.Is(err, odm.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown collection, got %v", err)
	}
}

func TestMemoryStore_UpdateMatchesPredicate(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()

	stored, _ := s.Insert(ctx, "account", doc("name", "alice", "lock_revision", int64(5)))
	id, _ := stored.Get(odm.IdentityKey)

	ok, err := s.Update(ctx, "account",
		doc("lock_revision", int64(5), odm.IdentityKey, id),
		doc("name", "alicia", "lock_revision", int64(6)),
	)
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}
	if s.AffectedCount() != 1 {
		t.Errorf("expected affected count 1, got %d", s.AffectedCount())
	}

	found, _ := s.Find(ctx, "account", doc(odm.IdentityKey, id))
	if v, _ := found.Get("name"); v != "alicia" {
		t.Errorf("expected updated name, got %v", v)
	}
	if v, _ := found.Get(odm.IdentityKey); v != id {
		t.Errorf("expected identity preserved, got %v", v)
	}
}

func TestMemoryStore_UpdateStalePredicateAffectsNothing(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()

	stored, _ := s.Insert(ctx, "account", doc("name", "alice", "lock_revision", int64(6)))
	id, _ := stored.Get(odm.IdentityKey)

	ok, err := s.Update(ctx, "account",
		doc("lock_revision", int64(5), odm.IdentityKey, id),
		doc("name", "ghost"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no match for a stale revision")
	}
	if s.AffectedCount() != 0 {
		t.Errorf("expected affected count 0, got %d", s.AffectedCount())
	}
}

func TestMemoryStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()

	stored, _ := s.Insert(ctx, "order", doc("item", "widget"))
	id, _ := stored.Get(odm.IdentityKey)

	ok, err := s.Remove(ctx, "order", doc(odm.IdentityKey, id))
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}
	if s.AffectedCount() != 1 {
		t.Errorf("expected affected count 1, got %d", s.AffectedCount())
	}

	ok, err = s.Remove(ctx, "order", doc(odm.IdentityKey, id))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || s.AffectedCount() != 0 {
		t.Error("expected second remove to affect nothing")
	}
}

func TestMemoryStore_ClonesOnTheWayOut(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()

	stored, _ := s.Insert(ctx, "order", doc("item", "widget"))
	id, _ := stored.Get(odm.IdentityKey)

	// Mutating a returned document must not leak into the store.
	stored.Set("item", "mutated")

	found, _ := s.Find(ctx, "order", doc(odm.IdentityKey, id))
	if v, _ := found.Get("item"); v != "widget" {
		t.Errorf("store contents leaked: %v", v)
	}
}
