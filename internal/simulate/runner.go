package simulate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

// Run plays a generated match day through feed into board, waits for the
// feed to drain and verifies the result. Run starts and closes feed.
func Run(ctx context.Context, board *app.Scoreboard, feed *app.Feed, cfg Config, log logger.Logger) (Stats, error) {
	if cfg.Contests < 1 || cfg.Publishers < 1 {
		return Stats{}, fmt.Errorf("%w: contests and publishers must be positive", app.ErrInvalidInput)
	}

	start := time.Now()
	plans := generate(cfg)
	stats := Stats{}
	for _, p := range plans {
		stats.EventsGenerated += len(p.events)
	}

	log.Info(ctx, "starting simulated match day",
		logger.Int("contests", cfg.Contests),
		logger.Int("updates_per_contest", cfg.UpdatesPerContest),
		logger.Int("publishers", cfg.Publishers),
		logger.Int64("seed", int64(cfg.Seed)),
	)

	feed.Start(ctx)

	// A contest belongs to exactly one publisher, which keeps its events in order.
	var published, retried atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Publishers; w++ {
		g.Go(func() error {
			for i := w; i < len(plans); i += cfg.Publishers {
				for _, e := range plans[i].events {
					n, err := publish(gctx, feed, e, cfg.RetryDelay)
					if err != nil {
						return err
					}
					published.Add(1)
					retried.Add(int64(n))
				}
			}
			return nil
		})
	}
	pubErr := g.Wait()

	if err := feed.Close(ctx); err != nil {
		return stats, fmt.Errorf("drain feed: %w", err)
	}
	if pubErr != nil {
		return stats, fmt.Errorf("publish events: %w", pubErr)
	}

	stats.EventsPublished = int(published.Load())
	stats.EventsRetried = int(retried.Load())
	stats.ContestsActive = board.Active(ctx)
	stats.Duration = time.Since(start)

	if err := verify(ctx, board, plans); err != nil {
		return stats, err
	}

	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsPublished) / stats.Duration.Seconds()
	}
	log.Info(ctx, "simulated match day verified",
		logger.Int("events_generated", stats.EventsGenerated),
		logger.Int("events_published", stats.EventsPublished),
		logger.Int("events_retried", stats.EventsRetried),
		logger.Int("contests_active", stats.ContestsActive),
		logger.Duration("duration", stats.Duration),
		logger.Float64("events_per_second", eventsPerSecond),
	)
	return stats, nil
}

// publish retries while the feed reports backpressure and returns the
// number of retries.
func publish(ctx context.Context, feed *app.Feed, e model.Event, delay time.Duration) (int, error) { //nolint:gocritic // hugeParam: Event passed by value like the feed API
	for retries := 0; ; retries++ {
		err := feed.Publish(ctx, e)
		if !errors.Is(err, app.ErrFeedFull) {
			return retries, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return retries, ctx.Err()
		case <-timer.C:
		}
	}
}
