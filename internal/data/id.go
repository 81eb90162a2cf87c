package data

import "github.com/oklog/ulid/v2"

// NewID returns a globally unique id for any entity type. ULIDs are
// collision-resistant and lexicographically ordered by creation time, so a
// single id space can serve all three entity tables and the tombstone table
// without ambiguity. Safe to call from any goroutine.
func NewID() string {
	return ulid.Make().String()
}
