package engine

import "github.com/google/uuid"

// newPointID generates a point ID when the caller doesn't supply one,
// matching the original's uuid4() fallback in upsert_vectors.
func newPointID() string {
	return uuid.NewString()
}
