package app

import (
	"errors"

	"github.com/okian/scoreboard/internal/adapters/repository"
)

// Error kinds returned by the scoreboard. Callers match them with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = repository.ErrNotFound
	ErrDuplicateContest = repository.ErrDuplicateContest
	ErrInvalidScore     = repository.ErrInvalidScore

	ErrFeedFull         = errors.New("feed full")
	ErrFeedClosed       = errors.New("feed closed")
	ErrUnknownEventKind = errors.New("unknown event kind")
)

// errorKind maps an error to the label used in metrics and logs.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateContest):
		return "duplicate_contest"
	case errors.Is(err, ErrInvalidScore):
		return "invalid_score"
	case errors.Is(err, ErrUnknownEventKind):
		return "unknown_event_kind"
	case errors.Is(err, ErrFeedFull):
		return "feed_full"
	case errors.Is(err, ErrFeedClosed):
		return "feed_closed"
	default:
		return "internal"
	}
}
