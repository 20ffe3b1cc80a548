// Command scoreboard plays the World Cup fixtures through the live
// scoreboard and prints the resulting summary.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"

	"github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/config"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/simulate"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

const header = "Current World Cup Scoreboard:"

type fixture struct {
	home, away           string
	homeScore, awayScore int
}

// fixtures in kickoff order.
var fixtures = []fixture{
	{"Mexico", "Canada", 0, 5},
	{"Spain", "Brazil", 10, 2},
	{"Germany", "France", 2, 2},
	{"Uruguay", "Italy", 6, 6},
	{"Argentina", "Australia", 3, 1},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("scoreboard: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "scoreboard",
		Usage:     "play the World Cup fixtures and print the live scoreboard",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a YAML config file",
				EnvVars: []string{config.EnvConfig},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log_level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "feed",
				Usage: "drive the scoreboard through the asynchronous score feed",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "write collected metrics to stderr on exit",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c, stderr)
			if err != nil {
				return err
			}
			if err := run(c.Context, cfg, log, c.Bool("feed"), stdout); err != nil {
				return err
			}
			return finish(c, stderr)
		},
		Commands: []*cli.Command{
			newSimulateCommand(stdout, stderr),
		},
	}
}

func newSimulateCommand(stdout, stderr io.Writer) *cli.Command {
	defaults := simulate.DefaultConfig()
	return &cli.Command{
		Name:  "simulate",
		Usage: "play a randomized match day through the feed and verify the scoreboard",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "contests", Value: defaults.Contests, Usage: "number of contests"},
			&cli.IntFlag{Name: "updates", Value: defaults.UpdatesPerContest, Usage: "score events per contest"},
			&cli.IntFlag{Name: "end-every", Value: defaults.EndEvery, Usage: "end every Nth contest (0 for none)"},
			&cli.IntFlag{Name: "publishers", Value: defaults.Publishers, Usage: "concurrent publishers"},
			&cli.Uint64Flag{Name: "seed", Value: defaults.Seed, Usage: "generator seed"},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c, stderr)
			if err != nil {
				return err
			}

			board := app.New(app.WithLogger(log), app.WithPairPolicy(cfg.Policy()))
			feed := app.NewFeed(board,
				app.WithWorkers(cfg.FeedWorkers),
				app.WithQueueSize(cfg.FeedQueueSize),
				app.WithDedupeSize(cfg.DedupeSize),
				app.WithFeedLogger(log),
			)
			sim := defaults
			sim.Contests = c.Int("contests")
			sim.UpdatesPerContest = c.Int("updates")
			sim.EndEvery = c.Int("end-every")
			sim.Publishers = c.Int("publishers")
			sim.Seed = c.Uint64("seed")

			stats, err := simulate.Run(c.Context, board, feed, sim, log)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(stdout, "verified %d contests from %d events in %s\n",
				stats.ContestsActive, stats.EventsPublished, stats.Duration.Round(time.Millisecond)); err != nil {
				return err
			}
			return finish(c, stderr)
		},
	}
}

// setup loads configuration and builds the logger. Global flags are read
// through the lineage so subcommands see them too.
func setup(c *cli.Context, stderr io.Writer) (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadFile(c.Context, c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	log, err := logger.New(stderr, cfg.LogFormat, cfg.Level())
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func finish(c *cli.Context, stderr io.Writer) error {
	if c.Bool("metrics") {
		return writeMetrics(stderr)
	}
	return nil
}

// run plays every fixture to its final score and prints the summary to w.
func run(ctx context.Context, cfg *config.Config, log logger.Logger, useFeed bool, w io.Writer) error {
	sb := app.New(app.WithLogger(log), app.WithPairPolicy(cfg.Policy()))

	play := playDirect
	if useFeed {
		play = func(ctx context.Context, sb *app.Scoreboard) error { return playFeed(ctx, sb, cfg, log) }
	}
	if err := play(ctx, sb); err != nil {
		return err
	}

	log.Info(ctx, "fixtures played", logger.Int("contests", sb.Active(ctx)), logger.Bool("feed", useFeed))

	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for _, line := range sb.Summary(ctx) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func playDirect(ctx context.Context, sb *app.Scoreboard) error {
	ids := make([]model.ContestID, len(fixtures))
	for i, f := range fixtures {
		id, err := sb.StartContest(ctx, f.home, f.away)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	for i, f := range fixtures {
		if err := sb.UpdateScore(ctx, ids[i], f.homeScore, f.awayScore); err != nil {
			return err
		}
	}
	return nil
}

// playFeed publishes kickoffs through a single partition so start times
// follow the fixture list, then fans the final scores out over the
// configured partitions.
func playFeed(ctx context.Context, sb *app.Scoreboard, cfg *config.Config, log logger.Logger) error {
	kickoffs := app.NewFeed(sb, app.WithWorkers(1), app.WithQueueSize(len(fixtures)), app.WithFeedLogger(log))
	kickoffs.Start(ctx)
	for _, f := range fixtures {
		if err := kickoffs.Publish(ctx, model.Event{Kind: model.EventStart, Home: f.home, Away: f.away}); err != nil {
			return err
		}
	}
	if err := kickoffs.Close(ctx); err != nil {
		return err
	}

	scores := app.NewFeed(sb,
		app.WithWorkers(cfg.FeedWorkers),
		app.WithQueueSize(cfg.FeedQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithFeedLogger(log),
	)
	scores.Start(ctx)
	for _, f := range fixtures {
		e := model.Event{Kind: model.EventScore, Home: f.home, Away: f.away, HomeScore: f.homeScore, AwayScore: f.awayScore}
		if err := scores.Publish(ctx, e); err != nil {
			return err
		}
	}
	return scores.Close(ctx)
}

func writeMetrics(w io.Writer) error {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
