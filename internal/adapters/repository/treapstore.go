package repository

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/ranking"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Treap-based, in-memory Registry implementation.
//
// Ordering follows ranking.Less, where "less" means ranks earlier. In-order
// traversal therefore produces the scoreboard from best to worst. Nodes keep
// a copy of the key they were inserted with; a score change deletes the node
// under its old key and reinserts it under the new one.

// treap node
type node struct {
	key   ranking.Key
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// idToPriority hashes an id into a heap priority. Sequential ids spread
// uniformly, which keeps the expected depth logarithmic.
func idToPriority(id model.ContestID) uint64 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return xxhash.Sum64(b[:])
}

func insert(n *node, key ranking.Key) *node {
	if n == nil {
		return &node{key: key, prio: idToPriority(key.ID), size: 1}
	}
	if ranking.Less(key, n.key) {
		n.left = insert(n.left, key)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, key)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, key ranking.Key) *node {
	if n == nil {
		return nil
	}
	if key == n.key {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, key)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, key)
		}
	} else if ranking.Less(key, n.key) {
		n.left = deleteNode(n.left, key)
	} else {
		n.right = deleteNode(n.right, key)
	}
	fix(n)
	return n
}

// position returns the number of keys ranking before key.
func position(n *node, key ranking.Key) int {
	pos := 0
	for n != nil {
		switch {
		case key == n.key:
			return pos + nsize(n.left)
		case ranking.Less(key, n.key):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return pos
}

// collectAll appends every contest in rank order (best first).
func collectAll(n *node, byID map[model.ContestID]*entry, out *[]model.Contest) {
	if n == nil {
		return
	}
	collectAll(n.left, byID, out)
	if e, ok := byID[n.key.ID]; ok {
		*out = append(*out, e.contest)
	}
	collectAll(n.right, byID, out)
}

// entry is the registry-owned record plus the key it is indexed under.
type entry struct {
	contest model.Contest
	key     ranking.Key
	pair    model.Pair // normalized
}

// TreapStore implements Registry. It is not safe for concurrent use.
type TreapStore struct {
	root   *node
	byID   map[model.ContestID]*entry
	byPair map[model.Pair]model.ContestID
	nextID atomic.Int64
	now    func() time.Time
	policy model.PairPolicy
}

// NewTreapStore constructs an empty registry.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:   make(map[model.ContestID]*entry),
		byPair: make(map[model.Pair]model.ContestID),
		now:    time.Now,
		policy: model.PairOrdered,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Insert implements Registry.Insert in O(log n) expected time.
func (s *TreapStore) Insert(_ context.Context, home, away string) (model.Contest, error) {
	pair := model.Pair{Home: home, Away: away}.Normalize(s.policy)
	if id, ok := s.byPair[pair]; ok {
		return model.Contest{}, fmt.Errorf("%w: %s (id %d)", ErrDuplicateContest, pair, id)
	}

	c := model.Contest{
		ID:        model.ContestID(s.nextID.Add(1)),
		Home:      home,
		Away:      away,
		StartedAt: s.now(),
	}
	e := &entry{contest: c, key: ranking.KeyOf(c), pair: pair}

	s.byID[c.ID] = e
	s.byPair[pair] = c.ID
	s.root = insert(s.root, e.key)

	metrics.AddActiveContests(1)
	return c, nil
}

// UpdateScore implements Registry.UpdateScore in O(log n) expected time.
func (s *TreapStore) UpdateScore(_ context.Context, id model.ContestID, homeScore, awayScore int) (model.Contest, error) {
	if homeScore < 0 || awayScore < 0 {
		return model.Contest{}, fmt.Errorf("%w: %d - %d", ErrInvalidScore, homeScore, awayScore)
	}
	e, ok := s.byID[id]
	if !ok {
		return model.Contest{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	// The key depends on the score: unlink under the old key, mutate, relink.
	s.root = deleteNode(s.root, e.key)
	e.contest.HomeScore = homeScore
	e.contest.AwayScore = awayScore
	e.key = ranking.KeyOf(e.contest)
	s.root = insert(s.root, e.key)

	return e.contest, nil
}

// Remove implements Registry.Remove in O(log n) expected time.
func (s *TreapStore) Remove(_ context.Context, id model.ContestID) (model.Contest, error) {
	e, ok := s.byID[id]
	if !ok {
		return model.Contest{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	s.root = deleteNode(s.root, e.key)
	delete(s.byID, id)
	delete(s.byPair, e.pair)

	metrics.AddActiveContests(-1)
	return e.contest, nil
}

// Get implements Registry.Get.
func (s *TreapStore) Get(_ context.Context, id model.ContestID) (model.Contest, error) {
	e, ok := s.byID[id]
	if !ok {
		return model.Contest{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return e.contest, nil
}

// Lookup implements Registry.Lookup.
func (s *TreapStore) Lookup(_ context.Context, pair model.Pair) (model.Contest, error) {
	id, ok := s.byPair[pair.Normalize(s.policy)]
	if !ok {
		return model.Contest{}, fmt.Errorf("%w: %s", ErrNotFound, pair)
	}
	return s.byID[id].contest, nil
}

// Rank implements Registry.Rank in O(log n) expected time.
func (s *TreapStore) Rank(_ context.Context, id model.ContestID) (int, error) {
	e, ok := s.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return position(s.root, e.key) + 1, nil
}

// Ranked implements Registry.Ranked in O(n).
func (s *TreapStore) Ranked(_ context.Context) []model.Contest {
	out := make([]model.Contest, 0, len(s.byID))
	collectAll(s.root, s.byID, &out)
	return out
}

// Count implements Registry.Count.
func (s *TreapStore) Count(_ context.Context) int {
	return len(s.byID)
}
