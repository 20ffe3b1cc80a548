package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/ranking"
	"github.com/okian/scoreboard/pkg/metrics"
)

// steppingClock returns a clock that advances by one millisecond per call.
func steppingClock() func() time.Time {
	t := time.Unix(1_700_000_000, 0)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

// frozenClock returns the same instant on every call.
func frozenClock() func() time.Time {
	t := time.Unix(1_700_000_000, 0)
	return func() time.Time { return t }
}

func rendered(cs []model.Contest) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

// checkInvariants verifies BST order, heap order and subtree sizes, and that
// every index agrees on the same set of contests.
func checkInvariants(t *testing.T, s *TreapStore) {
	t.Helper()

	var walk func(n *node) int
	walk = func(n *node) int {
		if n == nil {
			return 0
		}
		if n.left != nil {
			if !ranking.Less(n.left.key, n.key) {
				t.Fatalf("left child %v does not rank before %v", n.left.key, n.key)
			}
			if n.left.prio > n.prio {
				t.Fatalf("heap order violated at %v", n.key)
			}
		}
		if n.right != nil {
			if !ranking.Less(n.key, n.right.key) {
				t.Fatalf("right child %v does not rank after %v", n.right.key, n.key)
			}
			if n.right.prio > n.prio {
				t.Fatalf("heap order violated at %v", n.key)
			}
		}
		size := 1 + walk(n.left) + walk(n.right)
		if size != n.size {
			t.Fatalf("node %v: size %d, counted %d", n.key, n.size, size)
		}
		e, ok := s.byID[n.key.ID]
		if !ok {
			t.Fatalf("node %v has no id entry", n.key)
		}
		if e.key != n.key {
			t.Fatalf("node key %v differs from entry key %v", n.key, e.key)
		}
		if e.key != ranking.KeyOf(e.contest) {
			t.Fatalf("entry %d is indexed under a stale key", e.contest.ID)
		}
		return size
	}

	if got := walk(s.root); got != len(s.byID) {
		t.Fatalf("tree holds %d nodes, id index %d", got, len(s.byID))
	}
	if len(s.byPair) != len(s.byID) {
		t.Fatalf("pair index holds %d, id index %d", len(s.byPair), len(s.byID))
	}
	for pair, id := range s.byPair {
		if s.byID[id].pair != pair {
			t.Fatalf("pair %s points at contest %d indexed as %s", pair, id, s.byID[id].pair)
		}
	}
}

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithClock(steppingClock()))

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	c, err := store.Insert(ctx, "Mexico", "Canada")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != 1 {
		t.Errorf("expected first id 1, got %d", c.ID)
	}
	if c.HomeScore != 0 || c.AwayScore != 0 {
		t.Errorf("expected 0-0, got %d-%d", c.HomeScore, c.AwayScore)
	}
	if c.StartedAt.IsZero() {
		t.Error("expected start time to be set")
	}

	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	got, err := store.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}

	byPair, err := store.Lookup(ctx, model.Pair{Home: "Mexico", Away: "Canada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byPair.ID != c.ID {
		t.Errorf("expected lookup to find %d, got %d", c.ID, byPair.ID)
	}

	rank, err := store.Rank(ctx, c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rank != 1 {
		t.Errorf("expected rank 1, got %d", rank)
	}

	checkInvariants(t, store)
}

func TestTreapStore_Ordering(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithClock(steppingClock()))

	contests := []struct {
		home, away string
		hs, as     int
	}{
		{"Mexico", "Canada", 0, 5},
		{"Spain", "Brazil", 10, 2},
		{"Germany", "France", 2, 2},
		{"Uruguay", "Italy", 6, 6},
		{"Argentina", "Australia", 3, 1},
	}

	for _, c := range contests {
		started, err := store.Insert(ctx, c.home, c.away)
		if err != nil {
			t.Fatalf("unexpected error starting %s: %v", c.home, err)
		}
		if _, err := store.UpdateScore(ctx, started.ID, c.hs, c.as); err != nil {
			t.Fatalf("unexpected error scoring %s: %v", c.home, err)
		}
	}

	want := []string{
		"Uruguay 6 - 6 Italy",
		"Spain 10 - 2 Brazil",
		"Mexico 0 - 5 Canada",
		"Argentina 3 - 1 Australia",
		"Germany 2 - 2 France",
	}
	if diff := cmp.Diff(want, rendered(store.Ranked(ctx))); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}

	for i, c := range store.Ranked(ctx) {
		rank, err := store.Rank(ctx, c.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rank != i+1 {
			t.Errorf("%s: expected rank %d, got %d", c, i+1, rank)
		}
	}

	checkInvariants(t, store)
}

func TestTreapStore_TieBreaking(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithClock(frozenClock()))

	// Same clock reading for all three: the highest id must rank first and
	// none of them may be coalesced.
	for _, p := range []model.Pair{{Home: "A", Away: "B"}, {Home: "C", Away: "D"}, {Home: "E", Away: "F"}} {
		if _, err := store.Insert(ctx, p.Home, p.Away); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	ranked := store.Ranked(ctx)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 contests, got %d", len(ranked))
	}
	ids := []model.ContestID{ranked[0].ID, ranked[1].ID, ranked[2].ID}
	if diff := cmp.Diff([]model.ContestID{3, 2, 1}, ids); diff != "" {
		t.Errorf("id tie-break mismatch (-want +got):\n%s", diff)
	}

	checkInvariants(t, store)
}

func TestTreapStore_DuplicatePair(t *testing.T) {
	ctx := context.Background()

	t.Run("ordered", func(t *testing.T) {
		store := NewTreapStore()
		if _, err := store.Insert(ctx, "Spain", "Brazil"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := store.Insert(ctx, "Spain", "Brazil")
		if !errors.Is(err, ErrDuplicateContest) {
			t.Fatalf("expected ErrDuplicateContest, got %v", err)
		}
		if store.Count(ctx) != 1 {
			t.Errorf("rejected insert changed the registry: count %d", store.Count(ctx))
		}

		if _, err := store.Insert(ctx, "Brazil", "Spain"); err != nil {
			t.Fatalf("reversed pair should be allowed under the ordered policy: %v", err)
		}
		checkInvariants(t, store)
	})

	t.Run("unordered", func(t *testing.T) {
		store := NewTreapStore(WithPairPolicy(model.PairUnordered))
		if _, err := store.Insert(ctx, "Spain", "Brazil"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := store.Insert(ctx, "Brazil", "Spain")
		if !errors.Is(err, ErrDuplicateContest) {
			t.Fatalf("expected ErrDuplicateContest for reversed pair, got %v", err)
		}

		c, err := store.Lookup(ctx, model.Pair{Home: "Brazil", Away: "Spain"})
		if err != nil {
			t.Fatalf("lookup by reversed pair failed: %v", err)
		}
		if c.Home != "Spain" {
			t.Errorf("expected the stored orientation to be kept, got %s", c.Pair())
		}
		checkInvariants(t, store)
	})
}

func TestTreapStore_UpdateScore(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithClock(steppingClock()))

	first, _ := store.Insert(ctx, "Germany", "France")
	second, _ := store.Insert(ctx, "Argentina", "Australia")

	// Later start ranks first at equal totals.
	if got := store.Ranked(ctx)[0].ID; got != second.ID {
		t.Fatalf("expected %d first, got %d", second.ID, got)
	}

	updated, err := store.UpdateScore(ctx, first.ID, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.HomeScore != 1 || updated.AwayScore != 0 {
		t.Errorf("expected 1-0, got %d-%d", updated.HomeScore, updated.AwayScore)
	}
	if got := store.Ranked(ctx)[0].ID; got != first.ID {
		t.Errorf("expected %d first after scoring, got %d", first.ID, got)
	}

	// Scores may go down (corrections); the contest is re-ranked either way.
	if _, err := store.UpdateScore(ctx, first.ID, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Ranked(ctx)[0].ID; got != second.ID {
		t.Errorf("expected %d first after correction, got %d", second.ID, got)
	}

	checkInvariants(t, store)
}

func TestTreapStore_UpdateScoreErrors(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	c, _ := store.Insert(ctx, "Mexico", "Canada")
	if _, err := store.UpdateScore(ctx, c.ID, 0, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, scores := range [][2]int{{-1, 0}, {0, -1}, {-3, -3}} {
		_, err := store.UpdateScore(ctx, c.ID, scores[0], scores[1])
		if !errors.Is(err, ErrInvalidScore) {
			t.Errorf("scores %v: expected ErrInvalidScore, got %v", scores, err)
		}
	}

	got, _ := store.Get(ctx, c.ID)
	if got.HomeScore != 0 || got.AwayScore != 5 {
		t.Errorf("rejected update changed the score to %d-%d", got.HomeScore, got.AwayScore)
	}

	if _, err := store.UpdateScore(ctx, 999, 1, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	checkInvariants(t, store)
}

func TestTreapStore_Remove(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithClock(steppingClock()))

	spain, _ := store.Insert(ctx, "Spain", "Brazil")
	mexico, _ := store.Insert(ctx, "Mexico", "Canada")

	removed, err := store.Remove(ctx, spain.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed.ID != spain.ID {
		t.Errorf("expected removed id %d, got %d", spain.ID, removed.ID)
	}

	if _, err := store.Get(ctx, spain.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
	if _, err := store.Rank(ctx, spain.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for rank after remove, got %v", err)
	}
	if _, err := store.Lookup(ctx, spain.Pair()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected pair to be released, got %v", err)
	}
	if _, err := store.Remove(ctx, spain.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second remove, got %v", err)
	}

	again, err := store.Insert(ctx, "Spain", "Brazil")
	if err != nil {
		t.Fatalf("expected released pair to be startable again: %v", err)
	}
	if again.ID <= mexico.ID {
		t.Errorf("expected a fresh id above %d, got %d", mexico.ID, again.ID)
	}

	checkInvariants(t, store)
}

func TestTreapStore_MonotonicIDs(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	var last model.ContestID
	for i := 0; i < 50; i++ {
		c, err := store.Insert(ctx, fmt.Sprintf("home%d", i), fmt.Sprintf("away%d", i))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.ID <= last {
			t.Fatalf("id %d not above previous %d", c.ID, last)
		}
		last = c.ID
		if i%3 == 0 {
			if _, err := store.Remove(ctx, c.ID); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}
}

func TestTreapStore_RandomizedAgainstSort(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	// Coarse clock so start-time ties are frequent.
	tick := time.Unix(0, 0)
	store := NewTreapStore(WithClock(func() time.Time {
		if rng.Intn(3) == 0 {
			tick = tick.Add(time.Second)
		}
		return tick
	}))

	var active []model.ContestID
	for step := 0; step < 2000; step++ {
		switch op := rng.Intn(10); {
		case op < 4 || len(active) == 0:
			c, err := store.Insert(ctx, fmt.Sprintf("h%d", step), fmt.Sprintf("a%d", step))
			if err != nil {
				t.Fatalf("step %d: %v", step, err)
			}
			active = append(active, c.ID)
		case op < 8:
			id := active[rng.Intn(len(active))]
			if _, err := store.UpdateScore(ctx, id, rng.Intn(6), rng.Intn(6)); err != nil {
				t.Fatalf("step %d: %v", step, err)
			}
		default:
			i := rng.Intn(len(active))
			if _, err := store.Remove(ctx, active[i]); err != nil {
				t.Fatalf("step %d: %v", step, err)
			}
			active = slices.Delete(active, i, i+1)
		}
	}

	checkInvariants(t, store)

	got := store.Ranked(ctx)
	want := slices.Clone(got)
	slices.SortFunc(want, func(a, b model.Contest) int {
		return ranking.Compare(ranking.KeyOf(a), ranking.KeyOf(b))
	})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("treap order differs from sorted order (-want +got):\n%s", diff)
	}
	if len(got) != len(active) {
		t.Errorf("expected %d active contests, got %d", len(active), len(got))
	}
}

func BenchmarkTreapStore_UpdateScore(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore()

	const numContests = 10_000
	ids := make([]model.ContestID, numContests)
	for i := range ids {
		c, _ := store.Insert(ctx, fmt.Sprintf("home_%d", i), fmt.Sprintf("away_%d", i))
		ids[i] = c.ID
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = store.UpdateScore(ctx, ids[i%numContests], i%7, i%5)
	}
}

func BenchmarkTreapStore_Ranked(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore()
	for i := 0; i < 1_000; i++ {
		c, _ := store.Insert(ctx, fmt.Sprintf("home_%d", i), fmt.Sprintf("away_%d", i))
		_, _ = store.UpdateScore(ctx, c.ID, i%9, i%4)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = store.Ranked(ctx)
	}
}

// activeGauge reads the process-wide active contests gauge.
func activeGauge(t *testing.T) float64 {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "scoreboard_live_contests_active" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("contests_active gauge not registered")
	return 0
}

func TestTreapStore_ActiveGaugeSharedAcrossStores(t *testing.T) {
	ctx := context.Background()
	before := activeGauge(t)

	first := NewTreapStore()
	for _, p := range [][2]string{{"Mexico", "Canada"}, {"Spain", "Brazil"}} {
		if _, err := first.Insert(ctx, p[0], p[1]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	second := NewTreapStore()
	if got := activeGauge(t); got != before+2 {
		t.Fatalf("a new store must not reset the gauge: got %v, want %v", got, before+2)
	}

	c, err := second.Insert(ctx, "Germany", "France")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := activeGauge(t); got != before+3 {
		t.Fatalf("gauge should sum both stores: got %v, want %v", got, before+3)
	}

	if _, err := second.Remove(ctx, c.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := second.Remove(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove: got %v, want ErrNotFound", err)
	}
	if got := activeGauge(t); got != before+2 {
		t.Fatalf("only the successful remove moves the gauge: got %v, want %v", got, before+2)
	}
}
