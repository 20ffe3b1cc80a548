// Package simulate plays randomized match days through the score feed and
// checks the scoreboard ends up where the generated plan says it should.
package simulate

import "time"

// Config holds configuration for a simulated match day.
type Config struct {
	Contests          int           // Number of contests to play
	UpdatesPerContest int           // Score events per contest
	EndEvery          int           // Every Nth contest is ended; 0 keeps all running
	Publishers        int           // Concurrent publishing goroutines
	Seed              uint64        // Seed for the event generator
	RetryDelay        time.Duration // Pause before republishing into a full feed
}

// DefaultConfig returns a small, quick match day.
func DefaultConfig() Config {
	return Config{
		Contests:          32,
		UpdatesPerContest: 20,
		EndEvery:          4,
		Publishers:        4,
		Seed:              1,
		RetryDelay:        time.Millisecond,
	}
}

// Stats summarizes a run.
type Stats struct {
	EventsGenerated int
	EventsPublished int
	EventsRetried   int
	ContestsActive  int
	Duration        time.Duration
}
