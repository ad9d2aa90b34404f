package core

import "github.com/google/uuid"

// ID is the stable 128-bit identifier every persistent entity carries,
// assigned at creation and never mutated.
type ID = uuid.UUID

// NewID assigns a new random identifier.
func NewID() ID {
	return uuid.New()
}

// NilID is the zero-value identifier, used as a sentinel for "unset".
var NilID = uuid.Nil
