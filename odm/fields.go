package odm

// Field synchronization: the bidirectional mapping between a record's
// typed fields and its untyped document.

// ToDocument builds a document containing exactly the record's declared
// fields, in declaration order, with their current values. The record's
// snapshot is not touched.
func (m *Mapper) ToDocument(rec Object) (*Document, error) {
	fields, err := m.schema.DeclaredFields(rec)
	if err != nil {
		return nil, err
	}
	doc := NewDocument()
	for _, f := range fields {
		v, err := m.schema.GetField(rec, f.Name)
		if err != nil {
			return nil, err
		}
		doc.Set(f.Name, v)
	}
	return doc, nil
}

// LoadFromDocument replaces the record's snapshot with a copy of doc and
// synchronizes the typed fields from it. If the document carries an
// identity under IdentityKey, the record adopts it.
func (m *Mapper) LoadFromDocument(rec Object, doc *Document) error {
	st := rec.state()
	st.doc = doc.Clone()
	if v, ok := st.doc.Get(IdentityKey); ok {
		if id, isStr := asString(v); isStr {
			st.id = ObjectID(id)
		}
	}
	return m.syncFromDocument(rec, st.doc)
}

// ApplyPartial assigns declared fields from the keys present in values.
// Keys that are not declared fields are ignored, as are declared fields
// absent from values. The snapshot is not touched.
func (m *Mapper) ApplyPartial(rec Object, values map[string]any) error {
	fields, err := m.schema.DeclaredFields(rec)
	if err != nil {
		return err
	}
	for _, f := range fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if err := m.schema.SetField(rec, f.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// FieldNames returns the record's declared field names in declaration
// order.
func (m *Mapper) FieldNames(rec Object) ([]string, error) {
	fields, err := m.schema.DeclaredFields(rec)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names, nil
}

// IsModified reports whether any declared field present in the last
// synchronized snapshot diverges from the record's current typed value.
// A record that was never persisted is never modified. Fields absent from
// the snapshot are not considered.
func (m *Mapper) IsModified(rec Object) (bool, error) {
	st := rec.state()
	if st.IsNew() || st.doc == nil {
		return false, nil
	}
	fields, err := m.schema.DeclaredFields(rec)
	if err != nil {
		return false, err
	}
	declared := make(map[string]bool, len(fields))
	for _, f := range fields {
		declared[f.Name] = true
	}
	for _, key := range st.doc.Keys() {
		if !declared[key] {
			continue
		}
		snap, _ := st.doc.Get(key)
		current, err := m.schema.GetField(rec, key)
		if err != nil {
			return false, err
		}
		if !ValuesEqual(snap, current) {
			return true, nil
		}
	}
	return false, nil
}

// syncFromDocument assigns typed fields from every document key that
// matches a declared field name, matching case-sensitively. Unmatched
// keys are ignored so documents with extra keys stay loadable.
func (m *Mapper) syncFromDocument(rec Object, doc *Document) error {
	fields, err := m.schema.DeclaredFields(rec)
	if err != nil {
		return err
	}
	declared := make(map[string]bool, len(fields))
	for _, f := range fields {
		declared[f.Name] = true
	}
	for _, key := range doc.Keys() {
		if !declared[key] {
			continue
		}
		v, _ := doc.Get(key)
		if err := m.schema.SetField(rec, key, v); err != nil {
			return err
		}
	}
	return nil
}
