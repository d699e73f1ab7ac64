package odm

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Reserved field names, matched case-insensitively against declared
// field names.
const (
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
	fieldModifiedAt   = "modified_at"
	fieldLockRevision = "lock_revision"
)

// ReservedRole identifies how a field is auto-managed by the lifecycle.
type ReservedRole int

const (
	// RoleNone marks an ordinary field with no auto-management.
	RoleNone ReservedRole = iota

	// RoleCreatedAt fields are set to the current time on create.
	RoleCreatedAt

	// RoleUpdatedAt fields are set to the current time on create and,
	// first match in declared order, on update.
	RoleUpdatedAt

	// RoleModifiedAt behaves like RoleUpdatedAt.
	RoleModifiedAt

	// RoleRevision fields carry the optimistic-lock counter: set to 1 on
	// create, incremented on update, and used as the lock predicate on
	// update and remove.
	RoleRevision
)

// ClassifyField returns the reserved role of a field name. Comparison is
// performed against a lower-cased form of the name.
func ClassifyField(name string) ReservedRole {
	switch strings.ToLower(name) {
	case fieldCreatedAt:
		return RoleCreatedAt
	case fieldUpdatedAt:
		return RoleUpdatedAt
	case fieldModifiedAt:
		return RoleModifiedAt
	case fieldLockRevision:
		return RoleRevision
	default:
		return RoleNone
	}
}

// parseRevision converts a revision value of any supported document type
// to an integer. A float converts only when it has no fractional part.
func parseRevision(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// now is swapped out by tests that need a fixed clock.
var now = time.Now
