package odm

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// assignField stores a document value into a struct field, coercing
// between the representations produced by the different store backends
// (JSON round trips turn integers into float64 and timestamps into
// RFC 3339 strings).
func assignField(fv reflect.Value, kind FieldKind, value any) error {
	switch kind {
	case KindString:
		s, err := toString(value)
		if err != nil {
			return err
		}
		fv.SetString(s)
	case KindID:
		s, err := toString(value)
		if err != nil {
			return err
		}
		fv.SetString(s)
	case KindInt:
		i, err := toInt(value)
		if err != nil {
			return err
		}
		if fv.CanInt() {
			if fv.OverflowInt(i) {
				return fmt.Errorf("value %d overflows %s", i, fv.Type())
			}
			fv.SetInt(i)
		} else {
			if i < 0 || fv.OverflowUint(uint64(i)) {
				return fmt.Errorf("value %d overflows %s", i, fv.Type())
			}
			fv.SetUint(uint64(i))
		}
	case KindFloat:
		f, err := toFloat(value)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("cannot assign %T to bool field", value)
		}
		fv.SetBool(b)
	case KindTime:
		ts, err := toTime(value)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(ts))
	default:
		return fmt.Errorf("unsupported field kind %d", kind)
	}
	return nil
}

func toString(value any) (string, error) {
	switch s := value.(type) {
	case string:
		return s, nil
	case ObjectID:
		return string(s), nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("cannot assign %T to string field", value)
	}
}

func toInt(value any) (int64, error) {
	switch n := value.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("cannot assign %T to integer field", value)
	}
}

func toFloat(value any) (float64, error) {
	switch n := value.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("cannot assign %T to float field", value)
	}
}

func toTime(value any) (time.Time, error) {
	switch ts := value.(type) {
	case time.Time:
		return ts, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("cannot assign %T to timestamp field", value)
	}
}

// ValuesEqual compares two document values across the representations the
// store backends produce: numbers compare numerically regardless of Go
// type, timestamps compare by instant (an RFC 3339 string matches the
// time it encodes), and identifiers compare as strings. Store backends
// use it for predicate matching.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	// The time path applies when at least one side is a time.Time; the
	// other side may be the RFC 3339 string a JSON round trip produced.
	if ta, ok := a.(time.Time); ok {
		tb, ok := asTime(b)
		return ok && ta.Equal(tb)
	}
	if tb, ok := b.(time.Time); ok {
		ta, ok := asTime(a)
		return ok && tb.Equal(ta)
	}

	na, aNum := asFloat(a)
	nb, bNum := asFloat(b)
	if aNum && bNum {
		return na == nb
	}
	if aNum != bNum {
		return false
	}

	sa, aStr := asString(a)
	sb, bStr := asString(b)
	if aStr && bStr {
		return sa == sb
	}

	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case ObjectID:
		return string(s), true
	default:
		return "", false
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
