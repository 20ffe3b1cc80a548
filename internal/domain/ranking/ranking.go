// Package ranking defines the order contests are listed in.
//
// Ordering: total score DESC, then start time DESC (most recent first), then
// contest id DESC. The id makes the order strict: two distinct contests never
// compare equal, so an ordered index can never coalesce them.
package ranking

import "github.com/okian/scoreboard/internal/domain/model"

// Key is the ordering key of a contest. It is a value copy taken at index
// time; the rank index must be re-keyed whenever a score changes.
type Key struct {
	Total     int
	StartedAt int64 // UnixNano
	ID        model.ContestID
}

// KeyOf returns the current key of c.
func KeyOf(c model.Contest) Key {
	return Key{
		Total:     c.Total(),
		StartedAt: c.StartedAt.UnixNano(),
		ID:        c.ID,
	}
}

// Less reports whether a ranks before b.
func Less(a, b Key) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	if a.StartedAt != b.StartedAt {
		return a.StartedAt > b.StartedAt
	}
	return a.ID > b.ID
}

// Compare returns -1 if a ranks before b, +1 if after, 0 if a == b.
func Compare(a, b Key) int {
	switch {
	case a == b:
		return 0
	case Less(a, b):
		return -1
	default:
		return 1
	}
}
