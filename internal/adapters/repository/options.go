package repository

import (
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithClock sets the source of contest start times.
func WithClock(now func() time.Time) Option {
	return func(s *TreapStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPairPolicy decides whether (A, B) and (B, A) may be active at once.
func WithPairPolicy(policy model.PairPolicy) Option {
	return func(s *TreapStore) {
		s.policy = policy
	}
}
