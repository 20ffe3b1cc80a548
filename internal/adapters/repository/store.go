// Package repository holds the authoritative set of active contests.
package repository

import (
	"context"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Registry stores active contests indexed by id, by party pair and by rank.
//
// Implementations are not required to be safe for concurrent use; callers
// serialize access (see app.Scoreboard). Returned contests are copies.
type Registry interface {
	// Insert starts a contest with zero scores and the next id.
	// Returns ErrDuplicateContest if the pair is already active.
	Insert(ctx context.Context, home, away string) (model.Contest, error)

	// UpdateScore replaces both scores and re-ranks the contest.
	// Returns ErrInvalidScore for negative scores and ErrNotFound for unknown ids.
	UpdateScore(ctx context.Context, id model.ContestID, homeScore, awayScore int) (model.Contest, error)

	// Remove ends a contest and frees its pair.
	// Returns ErrNotFound if the id is not active.
	Remove(ctx context.Context, id model.ContestID) (model.Contest, error)

	// Get returns the contest with the given id, or ErrNotFound.
	Get(ctx context.Context, id model.ContestID) (model.Contest, error)

	// Lookup returns the active contest for a pair, or ErrNotFound.
	Lookup(ctx context.Context, pair model.Pair) (model.Contest, error)

	// Rank returns the 1-based position of a contest, or ErrNotFound.
	Rank(ctx context.Context, id model.ContestID) (int, error)

	// Ranked returns all active contests, best first.
	Ranked(ctx context.Context) []model.Contest

	// Count returns the number of active contests.
	Count(ctx context.Context) int
}
