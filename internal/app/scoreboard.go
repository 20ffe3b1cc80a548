// Package app wires the contest registry, the summary cache and the score
// feed into the scoreboard used by the driver.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/summary"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Operation labels for metrics and logs.
const (
	opStart   = "start_contest"
	opUpdate  = "update_score"
	opEnd     = "end_contest"
	opSummary = "summary"
	opApply   = "apply_event"
)

// Scoreboard is the live scoreboard. It is safe for concurrent use.
//
// mu guards the registry and the cache's writer side. Every successful
// mutation republishes the summary before releasing the write lock, so a
// reader sees either the state before a mutation or the state after it.
type Scoreboard struct {
	mu       sync.RWMutex
	registry repository.Registry
	cache    *summary.Cache

	now    func() time.Time
	policy model.PairPolicy
	logger logger.Logger
}

// New constructs an empty scoreboard.
func New(opts ...Option) *Scoreboard {
	s := &Scoreboard{
		cache:  summary.NewCache(),
		now:    time.Now,
		policy: model.PairOrdered,
		logger: logger.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = repository.NewTreapStore(
			repository.WithClock(s.now),
			repository.WithPairPolicy(s.policy),
		)
	}
	s.logger = s.logger.Named("scoreboard")
	return s
}

// Policy returns the pair policy contests are matched under.
func (s *Scoreboard) Policy() model.PairPolicy {
	return s.policy
}

// StartContest begins a contest at 0 - 0 and returns its id.
func (s *Scoreboard) StartContest(ctx context.Context, home, away string) (model.ContestID, error) {
	start := time.Now()
	defer func() { metrics.RecordOperationLatency(opStart, metrics.Milliseconds(time.Since(start))) }()

	s.mu.Lock()
	c, err := s.startLocked(ctx, home, away)
	s.mu.Unlock()

	if err != nil {
		s.reject(ctx, opStart, err, logger.String("home", home), logger.String("away", away))
		return 0, err
	}
	metrics.RecordContestStarted()
	s.logger.Debug(ctx, "contest started",
		logger.Int64("id", int64(c.ID)),
		logger.String("home", c.Home),
		logger.String("away", c.Away),
	)
	return c.ID, nil
}

// UpdateScore replaces both scores of an active contest.
func (s *Scoreboard) UpdateScore(ctx context.Context, id model.ContestID, homeScore, awayScore int) error {
	start := time.Now()
	defer func() { metrics.RecordOperationLatency(opUpdate, metrics.Milliseconds(time.Since(start))) }()

	s.mu.Lock()
	c, err := s.updateLocked(ctx, id, homeScore, awayScore)
	s.mu.Unlock()

	if err != nil {
		s.reject(ctx, opUpdate, err, logger.Int64("id", int64(id)),
			logger.Int("home_score", homeScore), logger.Int("away_score", awayScore))
		return err
	}
	metrics.RecordScoreUpdated()
	s.logger.Debug(ctx, "score updated", logger.String("contest", c.String()))
	return nil
}

// EndContest removes an active contest from the scoreboard.
func (s *Scoreboard) EndContest(ctx context.Context, id model.ContestID) error {
	start := time.Now()
	defer func() { metrics.RecordOperationLatency(opEnd, metrics.Milliseconds(time.Since(start))) }()

	s.mu.Lock()
	c, err := s.endLocked(ctx, id)
	s.mu.Unlock()

	if err != nil {
		s.reject(ctx, opEnd, err, logger.Int64("id", int64(id)))
		return err
	}
	metrics.RecordContestEnded()
	s.logger.Debug(ctx, "contest ended", logger.String("contest", c.String()))
	return nil
}

// Summary returns the ranked display lines. It never blocks on writers;
// the slice is owned by the caller.
func (s *Scoreboard) Summary(ctx context.Context) []string {
	start := time.Now()
	defer func() { metrics.RecordOperationLatency(opSummary, metrics.Milliseconds(time.Since(start))) }()

	return s.cache.Lines()
}

// Contest returns a copy of an active contest.
func (s *Scoreboard) Contest(ctx context.Context, id model.ContestID) (model.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Get(ctx, id)
}

// Lookup returns the active contest between home and away.
func (s *Scoreboard) Lookup(ctx context.Context, home, away string) (model.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Lookup(ctx, model.Pair{Home: strings.TrimSpace(home), Away: strings.TrimSpace(away)})
}

// Rank returns the 1-based summary position of an active contest.
func (s *Scoreboard) Rank(ctx context.Context, id model.ContestID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Rank(ctx, id)
}

// Active returns the number of contests in progress.
func (s *Scoreboard) Active(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Count(ctx)
}

// Apply performs a feed event. Pair lookup and mutation happen under one
// write lock so the event sees a consistent registry.
func (s *Scoreboard) Apply(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: Event arrives by value from the queue
	start := time.Now()
	defer func() { metrics.RecordOperationLatency(opApply, metrics.Milliseconds(time.Since(start))) }()

	var (
		c   model.Contest
		err error
	)

	s.mu.Lock()
	switch e.Kind {
	case model.EventStart:
		c, err = s.startLocked(ctx, e.Home, e.Away)
	case model.EventScore:
		if c, err = s.lookupLocked(ctx, e.Home, e.Away); err == nil {
			c, err = s.updateLocked(ctx, c.ID, e.HomeScore, e.AwayScore)
		}
	case model.EventEnd:
		if c, err = s.lookupLocked(ctx, e.Home, e.Away); err == nil {
			c, err = s.endLocked(ctx, c.ID)
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEventKind, e.Kind)
	}
	s.mu.Unlock()

	if err != nil {
		s.reject(ctx, opApply, err, logger.String("event_id", e.EventID), logger.String("kind", string(e.Kind)))
		return err
	}

	switch e.Kind {
	case model.EventStart:
		metrics.RecordContestStarted()
	case model.EventScore:
		metrics.RecordScoreUpdated()
	case model.EventEnd:
		metrics.RecordContestEnded()
	}
	s.logger.Debug(ctx, "event applied",
		logger.String("event_id", e.EventID),
		logger.String("kind", string(e.Kind)),
		logger.String("contest", c.String()),
	)
	return nil
}

func (s *Scoreboard) startLocked(ctx context.Context, home, away string) (model.Contest, error) {
	home, away = strings.TrimSpace(home), strings.TrimSpace(away)
	switch {
	case home == "" || away == "":
		return model.Contest{}, fmt.Errorf("%w: team names must not be blank", ErrInvalidInput)
	case home == away:
		return model.Contest{}, fmt.Errorf("%w: %q cannot play itself", ErrInvalidInput, home)
	}

	c, err := s.registry.Insert(ctx, home, away)
	if err != nil {
		return model.Contest{}, err
	}
	s.publishLocked(ctx)
	return c, nil
}

func (s *Scoreboard) updateLocked(ctx context.Context, id model.ContestID, homeScore, awayScore int) (model.Contest, error) {
	c, err := s.registry.UpdateScore(ctx, id, homeScore, awayScore)
	if err != nil {
		return model.Contest{}, err
	}
	s.publishLocked(ctx)
	return c, nil
}

func (s *Scoreboard) endLocked(ctx context.Context, id model.ContestID) (model.Contest, error) {
	c, err := s.registry.Remove(ctx, id)
	if err != nil {
		return model.Contest{}, err
	}
	s.publishLocked(ctx)
	return c, nil
}

func (s *Scoreboard) publishLocked(ctx context.Context) {
	s.cache.Invalidate()
	s.cache.Refresh(func() []model.Contest { return s.registry.Ranked(ctx) })
}

func (s *Scoreboard) lookupLocked(ctx context.Context, home, away string) (model.Contest, error) {
	return s.registry.Lookup(ctx, model.Pair{Home: strings.TrimSpace(home), Away: strings.TrimSpace(away)})
}

func (s *Scoreboard) reject(ctx context.Context, op string, err error, fields ...logger.Field) {
	kind := errorKind(err)
	metrics.RecordError(op, kind)
	fields = append(fields, logger.String("op", op), logger.String("kind", kind), logger.Error(err))
	s.logger.Warn(ctx, "operation rejected", fields...)
}
