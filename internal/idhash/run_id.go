package idhash

import "github.com/google/uuid"

// NewRunID returns a random identifier for one persisted evaluation run.
func NewRunID() string {
	return uuid.NewString()
}

// ValidRunID reports whether id is a well-formed run identifier.
func ValidRunID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
