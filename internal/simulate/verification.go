package simulate

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/scoreboard/internal/app"
)

// ErrMismatch reports that the scoreboard disagrees with the plan.
var ErrMismatch = errors.New("scoreboard does not match plan")

// verify checks every contest's final state and the summary ordering.
func verify(ctx context.Context, board *app.Scoreboard, plans []plan) error {
	lines := board.Summary(ctx)
	expectedActive := 0
	for _, p := range plans {
		c, err := board.Lookup(ctx, p.home, p.away)
		if p.ended {
			if !errors.Is(err, app.ErrNotFound) {
				return fmt.Errorf("%w: %s vs %s should have ended", ErrMismatch, p.home, p.away)
			}
			continue
		}
		expectedActive++
		if err != nil {
			return fmt.Errorf("%w: %s vs %s: %w", ErrMismatch, p.home, p.away, err)
		}
		if c.HomeScore != p.homeScore || c.AwayScore != p.awayScore {
			return fmt.Errorf("%w: %s is %d - %d, want %d - %d",
				ErrMismatch, c.Pair(), c.HomeScore, c.AwayScore, p.homeScore, p.awayScore)
		}

		rank, err := board.Rank(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("%w: rank of %s: %w", ErrMismatch, c.Pair(), err)
		}
		if want := fmt.Sprintf("%d. %s", rank, c); rank > len(lines) || lines[rank-1] != want {
			return fmt.Errorf("%w: summary line %d is not %q", ErrMismatch, rank, want)
		}
	}

	if n := board.Active(ctx); n != expectedActive {
		return fmt.Errorf("%w: %d contests active, want %d", ErrMismatch, n, expectedActive)
	}
	return verifyOrder(ctx, board, plans)
}

// verifyOrder checks totals never increase down the summary.
func verifyOrder(ctx context.Context, board *app.Scoreboard, plans []plan) error {
	totals := make([]int, board.Active(ctx))
	for _, p := range plans {
		if p.ended {
			continue
		}
		c, err := board.Lookup(ctx, p.home, p.away)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMismatch, err)
		}
		rank, err := board.Rank(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMismatch, err)
		}
		totals[rank-1] = c.Total()
	}
	for i := 1; i < len(totals); i++ {
		if totals[i] > totals[i-1] {
			return fmt.Errorf("%w: rank %d has total %d above rank %d with %d",
				ErrMismatch, i+1, totals[i], i, totals[i-1])
		}
	}
	return nil
}
