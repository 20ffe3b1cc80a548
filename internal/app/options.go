package app

import (
	"time"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

// Option applies a configuration option to the Scoreboard.
type Option func(*Scoreboard)

// WithLogger sets a custom logger for the scoreboard.
func WithLogger(l logger.Logger) Option {
	return func(s *Scoreboard) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry replaces the default treap registry.
// WithClock and WithPairPolicy have no effect on a supplied registry.
func WithRegistry(r repository.Registry) Option {
	return func(s *Scoreboard) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithClock sets the source of contest start times.
func WithClock(now func() time.Time) Option {
	return func(s *Scoreboard) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPairPolicy decides whether a reversed pair counts as the same contest.
func WithPairPolicy(policy model.PairPolicy) Option {
	return func(s *Scoreboard) {
		s.policy = policy
	}
}

// FeedOption applies a configuration option to the Feed.
type FeedOption func(*Feed)

// WithWorkers sets the number of partitions, one worker each.
func WithWorkers(n int) FeedOption {
	return func(f *Feed) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithQueueSize sets the capacity of each partition queue.
func WithQueueSize(n int) FeedOption {
	return func(f *Feed) {
		if n > 0 {
			f.queueSize = n
		}
	}
}

// WithDedupeSize sets how many event ids are remembered. Zero or less is unbounded.
func WithDedupeSize(n int) FeedOption {
	return func(f *Feed) {
		f.dedupeSize = n
	}
}

// WithFeedLogger sets a custom logger for the feed and its workers.
func WithFeedLogger(l logger.Logger) FeedOption {
	return func(f *Feed) {
		if l != nil {
			f.logger = l
		}
	}
}
