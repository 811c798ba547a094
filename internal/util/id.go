package util

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/google/uuid"
)

// GenerateEntityID returns a collision-resistant id namespaced by entity type
// and project. The project tag keeps ids greppable per project; the uuid makes
// the id unique even for identical inputs.
func GenerateEntityID(entityType, projectID string) string {
	h := sha1.Sum([]byte(projectID))
	return entityType + "_" + hex.EncodeToString(h[:4]) + "_" + uuid.NewString()
}

// GenerateID returns a prefixed unique id for operations, transactions,
// batches, and issues.
func GenerateID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
