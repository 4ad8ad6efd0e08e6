// Package id provides unique identifier generation for background tasks.
package id

import "github.com/google/uuid"

// Generate creates a new random task ID (UUID v4).
func Generate() string {
	return uuid.NewString()
}

// Valid reports whether s is a well-formed task ID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
