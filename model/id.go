package model

import "github.com/gofrs/uuid"

// NewID returns a random identifier for forms, fields, responses and users.
func NewID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// IsID reports whether s is a well-formed identifier.
func IsID(s string) bool {
	_, err := uuid.FromString(s)
	return err == nil
}
