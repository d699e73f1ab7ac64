package odm

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// FieldKind is the semantic type of a declared field.
type FieldKind int

const (
	// KindString is a UTF-8 string field.
	KindString FieldKind = iota
	// KindInt is a signed integer field.
	KindInt
	// KindFloat is a floating point field.
	KindFloat
	// KindBool is a boolean field.
	KindBool
	// KindTime is a timestamp field.
	KindTime
	// KindID is an opaque identifier field.
	KindID
)

// FieldDescriptor describes one declared field of a record type.
type FieldDescriptor struct {
	// Name is the document key the field maps to.
	Name string
	// Kind is the field's semantic type.
	Kind FieldKind
}

// SchemaIntrospector exposes a record type's name and its ordered set of
// declared fields. Declaration order is load-bearing: the lifecycle's
// first-match rules for reserved fields follow it.
type SchemaIntrospector interface {
	// TypeName returns the record's type name (e.g., "UserAccountObject").
	TypeName(rec Object) string

	// DeclaredFields returns the record type's fields in declaration order.
	DeclaredFields(rec Object) ([]FieldDescriptor, error)

	// GetField returns the current value of a declared field, normalized
	// to its document representation.
	GetField(rec Object, name string) (any, error)

	// SetField assigns a declared field from a document value, coercing
	// compatible representations (e.g., a float or string to an integer
	// field, an RFC 3339 string to a timestamp field).
	SetField(rec Object, name string, value any) error
}

// StructIntrospector is the default SchemaIntrospector. It enumerates
// struct fields annotated with a `field:"name=..."` tag in declaration
// order and caches the parsed schema per type.
//
// Exported fields without the tag, unexported fields, and the embedded
// Record base are not declared fields. A type with no tagged fields is
// rejected.
type StructIntrospector struct {
	schemas sync.Map // reflect.Type -> *structSchema
}

// NewStructIntrospector returns an empty StructIntrospector.
func NewStructIntrospector() *StructIntrospector {
	return &StructIntrospector{}
}

type structSchema struct {
	name   string
	fields []structField
	byName map[string]int
}

type structField struct {
	name  string
	index int
	kind  FieldKind
}

// TypeName returns the record's Go type name.
func (si *StructIntrospector) TypeName(rec Object) string {
	t := reflect.TypeOf(rec)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// DeclaredFields returns the tagged fields of the record in declaration
// order.
func (si *StructIntrospector) DeclaredFields(rec Object) ([]FieldDescriptor, error) {
	schema, _, err := si.schemaFor(rec)
	if err != nil {
		return nil, err
	}
	fields := make([]FieldDescriptor, len(schema.fields))
	for i, f := range schema.fields {
		fields[i] = FieldDescriptor{Name: f.name, Kind: f.kind}
	}
	return fields, nil
}

// GetField returns the document representation of a declared field's
// current value: integers as int64, floats as float64, timestamps as
// time.Time, identifiers as ObjectID.
func (si *StructIntrospector) GetField(rec Object, name string) (any, error) {
	schema, v, err := si.schemaFor(rec)
	if err != nil {
		return nil, err
	}
	i, ok := schema.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, schema.name, name)
	}
	f := schema.fields[i]
	fv := v.Field(f.index)

	switch f.kind {
	case KindInt:
		if fv.CanInt() {
			return fv.Int(), nil
		}
		return int64(fv.Uint()), nil
	case KindFloat:
		return fv.Float(), nil
	case KindID:
		return ObjectID(fv.String()), nil
	default:
		return fv.Interface(), nil
	}
}

// SetField assigns a declared field from a document value, coercing
// compatible representations. A nil value resets the field to its zero
// value.
func (si *StructIntrospector) SetField(rec Object, name string, value any) error {
	schema, v, err := si.schemaFor(rec)
	if err != nil {
		return err
	}
	i, ok := schema.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, schema.name, name)
	}
	f := schema.fields[i]
	fv := v.Field(f.index)

	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	if err := assignField(fv, f.kind, value); err != nil {
		return fmt.Errorf("set %s.%s: %w", schema.name, name, err)
	}
	return nil
}

// schemaFor resolves the cached schema and the addressable struct value
// for a record.
func (si *StructIntrospector) schemaFor(rec Object) (*structSchema, reflect.Value, error) {
	v := reflect.ValueOf(rec)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, reflect.Value{}, ErrNotStruct
	}
	v = v.Elem()
	t := v.Type()

	if cached, ok := si.schemas.Load(t); ok {
		return cached.(*structSchema), v, nil
	}

	schema, err := parseSchema(t)
	if err != nil {
		return nil, reflect.Value{}, err
	}
	si.schemas.Store(t, schema)
	return schema, v, nil
}

var recordType = reflect.TypeOf(Record{})

// parseSchema builds a structSchema from the type's field tags.
func parseSchema(t reflect.Type) (*structSchema, error) {
	schema := &structSchema{
		name:   t.Name(),
		byName: make(map[string]int),
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type == recordType {
			continue
		}
		if !sf.IsExported() {
			continue
		}
		tag, ok := sf.Tag.Lookup("field")
		if !ok {
			continue
		}
		name, err := parseFieldTag(tag)
		if err != nil {
			return nil, fmt.Errorf("activedoc: %s.%s: %w", t.Name(), sf.Name, err)
		}
		kind, err := kindOf(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("activedoc: %s.%s: %w", t.Name(), sf.Name, err)
		}
		if _, dup := schema.byName[name]; dup {
			return nil, fmt.Errorf("activedoc: %s: duplicate field name %q", t.Name(), name)
		}
		schema.byName[name] = len(schema.fields)
		schema.fields = append(schema.fields, structField{
			name:  name,
			index: i,
			kind:  kind,
		})
	}

	if len(schema.fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFields, t.Name())
	}
	return schema, nil
}

// parseFieldTag extracts the document key from a `field:"name=..."` tag.
func parseFieldTag(tag string) (string, error) {
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if value, ok := strings.CutPrefix(part, "name="); ok {
			if value == "" {
				return "", fmt.Errorf("empty name in field tag %q", tag)
			}
			return value, nil
		}
	}
	return "", fmt.Errorf("field tag %q has no name= entry", tag)
}

var timeType = reflect.TypeOf(time.Time{})

// kindOf maps a Go field type to its FieldKind.
func kindOf(t reflect.Type) (FieldKind, error) {
	if t == timeType {
		return KindTime, nil
	}
	if t == reflect.TypeOf(ObjectID("")) {
		return KindID, nil
	}
	switch t.Kind() {
	case reflect.String:
		return KindString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil
	case reflect.Bool:
		return KindBool, nil
	default:
		return 0, fmt.Errorf("unsupported field type %s", t)
	}
}
