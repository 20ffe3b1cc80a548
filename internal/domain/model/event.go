package model

import "time"

// EventKind tells the feed what an Event does to its contest.
type EventKind string

const (
	EventStart EventKind = "start"
	EventScore EventKind = "score"
	EventEnd   EventKind = "end"
)

// Event is a score feed message. Feeds know parties, not contest ids, so
// events address their contest by pair.
type Event struct {
	EventID   string    // unique id for idempotency
	Kind      EventKind // start, score or end
	Home      string
	Away      string
	HomeScore int // used by EventScore only
	AwayScore int // used by EventScore only
	TS        time.Time
}

// Pair returns the pair the event addresses.
func (e Event) Pair() Pair {
	return Pair{Home: e.Home, Away: e.Away}
}
