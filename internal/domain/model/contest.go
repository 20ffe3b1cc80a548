// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ContestID identifies an active contest. IDs are positive and allocated in
// strictly increasing order by the registry.
type ContestID int64

// Contest represents one active pairwise contest.
// Home and Away never change after creation; scores only change through the registry.
type Contest struct {
	ID        ContestID
	Home      string
	Away      string
	HomeScore int
	AwayScore int
	StartedAt time.Time
}

// Total returns the combined score used for ranking.
func (c Contest) Total() int {
	return c.HomeScore + c.AwayScore
}

// Pair returns the ordered party pair of the contest.
func (c Contest) Pair() Pair {
	return Pair{Home: c.Home, Away: c.Away}
}

// String renders the contest as "<Home> <HomeScore> - <AwayScore> <Away>".
func (c Contest) String() string {
	return fmt.Sprintf("%s %d - %d %s", c.Home, c.HomeScore, c.AwayScore, c.Away)
}

// PairPolicy decides which party pairs count as the same contest.
type PairPolicy int

const (
	// PairOrdered treats (A, B) and (B, A) as different contests.
	PairOrdered PairPolicy = iota
	// PairUnordered treats (A, B) and (B, A) as the same contest.
	PairUnordered
)

// String returns the config spelling of the policy.
func (p PairPolicy) String() string {
	switch p {
	case PairUnordered:
		return "unordered"
	default:
		return "ordered"
	}
}

// ParsePairPolicy parses "ordered" or "unordered" (case-insensitive).
func ParsePairPolicy(s string) (PairPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ordered":
		return PairOrdered, nil
	case "unordered":
		return PairUnordered, nil
	default:
		return PairOrdered, fmt.Errorf("unknown pair policy: %s", s)
	}
}

// Pair is the uniqueness key of an active contest.
type Pair struct {
	Home string
	Away string
}

// Normalize returns the key the pair is indexed under for the given policy.
func (p Pair) Normalize(policy PairPolicy) Pair {
	if policy == PairUnordered && p.Away < p.Home {
		return Pair{Home: p.Away, Away: p.Home}
	}
	return p
}

// String renders the pair as "<Home> vs <Away>".
func (p Pair) String() string {
	return p.Home + " vs " + p.Away
}
