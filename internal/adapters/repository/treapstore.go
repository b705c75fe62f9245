package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/quotient/internal/domain/quotient"
	"github.com/okian/quotient/internal/domain/types"
	"github.com/okian/quotient/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then FID ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the leaderboard
// from best to worst. Ranks are dense: equal scores share a rank and the
// next distinct score gets rank+1.

// record is the stored row for one profile.
type record struct {
	username  string
	score     int
	updatedAt time.Time
}

// treap node
type node struct {
	fid   uint64
	score int
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

// less returns true if (aScore, aFID) should appear before (bScore, bFID).
func less(aScore int, aFID uint64, bScore int, bFID uint64) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aFID < bFID
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

func insert(n *node, fid uint64, score int) *node {
	if n == nil {
		return &node{fid: fid, score: score, prio: rand.Uint64(), size: 1}
	}
	if less(score, fid, n.score, n.fid) {
		n.left = insert(n.left, fid, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, fid, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, fid uint64, score int) *node {
	if n == nil {
		return nil
	}
	if score == n.score && fid == n.fid {
		// Rotate the higher-priority child up until n is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, fid, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, fid, score)
		}
	} else if less(score, fid, n.score, n.fid) {
		n.left = deleteNode(n.left, fid, score)
	} else {
		n.right = deleteNode(n.right, fid, score)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, byFID map[uint64]record, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, byFID, out)
	if len(*out) < limit {
		if rec, ok := byFID[n.fid]; ok {
			*out = append(*out, toEntry(n.fid, rec))
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, byFID, out)
	}
}

func toEntry(fid uint64, rec record) types.Entry {
	return types.Entry{
		FID:      fid,
		Username: rec.username,
		Score:    rec.score,
		Tier:     quotient.TierForScore(rec.score),
	}
}

var _ Store = (*TreapStore)(nil)

// TreapStore is the in-memory leaderboard.
type TreapStore struct {
	mu    sync.RWMutex
	root  *node
	byFID map[uint64]record

	// scoreCounts holds how many profiles share each score; its key set is
	// the distinct scores used for dense ranking.
	scoreCounts map[int]int

	metricsUpdateInterval time.Duration
	now                   func() time.Time

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byFID:                 make(map[uint64]record),
		scoreCounts:           make(map[int]int),
		metricsUpdateInterval: 5 * time.Second,
		now:                   time.Now,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics goroutine.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Upsert implements Store.Upsert with O(log n) expected time.
func (s *TreapStore) Upsert(ctx context.Context, fid uint64, username string, score int) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if fid == 0 {
		metrics.RecordErrorByComponent("repository", "invalid_fid")
		return false, ErrInvalidFID
	}
	score = max(min(score, quotient.MaxScore), quotient.MinScore)

	s.mu.Lock()
	old, exists := s.byFID[fid]
	if exists && old.score == score && old.username == username {
		s.mu.Unlock()
		return false, nil
	}
	if exists && old.score != score {
		s.root = deleteNode(s.root, fid, old.score)
		s.decScoreLocked(old.score)
	}
	if !exists || old.score != score {
		s.root = insert(s.root, fid, score)
		s.scoreCounts[score]++
	}
	s.byFID[fid] = record{username: username, score: score, updatedAt: s.now()}
	count := len(s.byFID)
	s.mu.Unlock()

	metrics.RecordLeaderboardUpdate()
	if !exists {
		metrics.UpdateRepositoryRecordsTotal(count)
	}
	return true, nil
}

// Remove implements Store.Remove.
func (s *TreapStore) Remove(ctx context.Context, fid uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byFID[fid]
	if !ok {
		return nil
	}
	s.root = deleteNode(s.root, fid, old.score)
	s.decScoreLocked(old.score)
	delete(s.byFID, fid)
	return nil
}

func (s *TreapStore) decScoreLocked(score int) {
	if s.scoreCounts[score] <= 1 {
		delete(s.scoreCounts, score)
		return
	}
	s.scoreCounts[score]--
}

// Rank returns the dense rank of fid. The cost is bounded by the number of
// distinct scores, which is at most MaxScore+1.
func (s *TreapStore) Rank(ctx context.Context, fid uint64) (types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byFID[fid]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}

	higher := 0
	for score := range s.scoreCounts {
		if score > rec.score {
			higher++
		}
	}

	e := toEntry(fid, rec)
	e.Rank = higher + 1
	return e, nil
}

// TopN returns the top N entries ordered by score desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entry, 0, min(n, len(s.byFID)))
	collectTopN(s.root, n, s.byFID, &out)

	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of ranked profiles.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byFID)
}

// UpdatedAt reports when fid's row last changed.
func (s *TreapStore) UpdatedAt(fid uint64) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byFID[fid]
	return rec.updatedAt, ok
}

// startMetricsUpdater starts a background goroutine that publishes the
// record count gauge.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateRepositoryRecordsTotal(s.Count(ctx))
			}
		}
	}()
}

// assignRanksWithTies assigns dense ranks to entries already in leaderboard
// order, starting at 1.
func assignRanksWithTies(entries []types.Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			rank++
		}
		entries[i].Rank = rank
	}
}
