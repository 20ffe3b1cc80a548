package repository

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrNotFound         = errors.New("contest not found")
	ErrDuplicateContest = errors.New("contest already in progress")
	ErrInvalidScore     = errors.New("invalid score")
)
