// Package docstore provides DocumentStore backends for the odm package.
package docstore

import (
	"fmt"
	"path/filepath"

	"github.com/lgphp/activedoc/odm"
)

// New creates a DocumentStore based on the backend name.
//
// Supported backends:
//
//	"memory" - in-memory (ephemeral, for testing)
//	"sqlite" - SQLite database at dataDir/documents.db
//
// The DynamoDB backend needs a client and is constructed directly with
// [NewDynamoStore].
func New(backend, dataDir string) (odm.DocumentStore, error) {
	switch backend {
	case "memory", "":
		return NewMemoryStore(), nil
	case "sqlite":
		dbPath := filepath.Join(dataDir, "documents.db")
		return NewSqliteStore(dbPath)
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: memory, sqlite)", backend)
	}
}
