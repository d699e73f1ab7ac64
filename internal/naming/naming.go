// Package naming derives storage collection names from record type names.
package naming

import (
	"strings"
	"unicode"
)

// objectSuffix is stripped from the end of derived collection names so a
// type named UserAccountObject maps to the user_account collection.
const objectSuffix = "_object"

// Collection converts a PascalCase type name to a collection name.
// An underscore is inserted before every upper-case letter except the
// first character, all letters are lower-cased, and a trailing "_object"
// is removed. The derivation is pure and deterministic.
//
// Examples:
//
//	"UserAccountObject" -> "user_account"
//	"Order"             -> "order"
//	"HTTPLogObject"     -> "h_t_t_p_log"
func Collection(typeName string) string {
	var b strings.Builder
	b.Grow(len(typeName) * 2)

	first := true
	for _, r := range typeName {
		if !first && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
		first = false
	}

	return strings.TrimSuffix(b.String(), objectSuffix)
}
