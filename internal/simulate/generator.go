package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Out of 100 score events, how many take a goal back (disallowed on review).
const overturnPercent = 10

// plan is the scripted life of one contest and where it must finish.
type plan struct {
	home, away string
	events     []model.Event
	homeScore  int
	awayScore  int
	ended      bool
}

// generate builds one plan per contest. The same seed yields the same plans.
func generate(cfg Config) []plan {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	plans := make([]plan, cfg.Contests)

	for i := range plans {
		p := plan{
			home: fmt.Sprintf("Home-%03d", i),
			away: fmt.Sprintf("Away-%03d", i),
		}
		p.events = append(p.events, p.event(i, 0, model.EventStart))

		for u := 1; u <= cfg.UpdatesPerContest; u++ {
			switch {
			case rng.IntN(100) < overturnPercent && p.homeScore+p.awayScore > 0:
				if p.homeScore > 0 {
					p.homeScore--
				} else {
					p.awayScore--
				}
			case rng.IntN(2) == 0:
				p.homeScore++
			default:
				p.awayScore++
			}
			e := p.event(i, u, model.EventScore)
			e.HomeScore, e.AwayScore = p.homeScore, p.awayScore
			p.events = append(p.events, e)
		}

		if cfg.EndEvery > 0 && i%cfg.EndEvery == cfg.EndEvery-1 {
			p.ended = true
			p.events = append(p.events, p.event(i, cfg.UpdatesPerContest+1, model.EventEnd))
		}
		plans[i] = p
	}
	return plans
}

func (p *plan) event(contest, seq int, kind model.EventKind) model.Event {
	return model.Event{
		EventID: fmt.Sprintf("c%03d-%04d", contest, seq),
		Kind:    kind,
		Home:    p.home,
		Away:    p.away,
	}
}
