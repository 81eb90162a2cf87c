package repo

import "time"

// Revisioned is anything carrying a server-side revision stamp: live
// entities expose their system revision, tombstones their deletion instant.
type Revisioned interface {
	RevisionTime() time.Time
}

// latest folds the items' revisions into current, returning the newest.
func latest[T Revisioned](current time.Time, items []T) time.Time {
	for _, item := range items {
		if rev := item.RevisionTime(); rev.After(current) {
			current = rev
		}
	}
	return current
}
