package database

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a random UUID string.  Repositories use it when the
// caller does not supply an id.
func NewID() string { return uuid.NewString() }

// Now returns the current UTC time truncated to whole seconds, the
// precision of a TIMESTAMP column.
func Now() time.Time { return time.Now().UTC().Truncate(time.Second) }
