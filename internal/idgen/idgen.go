// Package idgen generates the opaque, stable order identifiers the
// facade assigns on submission. It is an external collaborator per the
// design, swappable behind the Generator interface.
package idgen

import "github.com/google/uuid"

// Generator produces a unique id string.
type Generator interface {
	Generate() string
}

// UUIDGenerator generates RFC 4122 v4 ids.
type UUIDGenerator struct{}

// Generate returns a new random UUID string.
func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}
