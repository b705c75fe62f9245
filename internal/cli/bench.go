package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/quotient/internal/domain/types"
	"github.com/okian/quotient/pkg/logger"
)

// Bench defaults.
const (
	defaultBenchProfiles = 200
	defaultBenchMaxFID   = 500_000
	defaultBenchWorkers  = 16
	defaultBenchTop      = 50
	defaultBenchSettle   = 2 * time.Minute
	benchPollInterval    = 500 * time.Millisecond
	percentageMultiplier = 100
)

// ErrLeaderboardOrder is returned when the leaderboard breaks its ordering.
var ErrLeaderboardOrder = errors.New("leaderboard order violated")

// BenchConfig drives a bench run.
type BenchConfig struct {
	Profiles int
	MaxFID   uint64
	Workers  int
	Top      int
	Batch    int
	Settle   time.Duration
	Seed     uint64
}

// BenchStats summarises a bench run.
type BenchStats struct {
	Requested     int           `json:"requested"`
	Accepted      int           `json:"accepted"`
	Ranked        int           `json:"ranked"`
	Missing       int           `json:"missing"`
	Leaderboard   int           `json:"leaderboardEntries"`
	Drained       bool          `json:"drained"`
	Duration      time.Duration `json:"duration"`
	RanksPerSec   float64       `json:"ranksPerSecond"`
	AcceptedRatio float64       `json:"acceptedPercent"`
}

// Bench queues refreshes for random FIDs, waits for the workers to drain,
// reads every rank back and checks the leaderboard ordering.
func Bench(ctx context.Context, c *Client, cfg BenchConfig) (BenchStats, error) {
	log := logger.Get().Named("bench")
	start := time.Now()
	stats := BenchStats{Requested: cfg.Profiles}

	if err := c.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	fids := benchFIDs(cfg.Profiles, cfg.MaxFID, cfg.Seed)
	log.Info(ctx, "queueing refreshes", logger.Int("profiles", len(fids)), logger.Int("workers", cfg.Workers))

	res, err := RefreshAll(ctx, c, fids, cfg.Batch, cfg.Workers)
	if err != nil {
		return stats, fmt.Errorf("refresh: %w", err)
	}
	stats.Accepted = res.Accepted
	if stats.Requested > 0 {
		stats.AcceptedRatio = float64(res.Accepted) / float64(stats.Requested) * percentageMultiplier
	}

	stats.Drained = waitForDrain(ctx, c, cfg.Settle)
	if !stats.Drained {
		log.Warn(ctx, "queue did not drain before the settle deadline", logger.String("settle", cfg.Settle.String()))
	}

	rankStart := time.Now()
	ranked, missing, err := fetchRanks(ctx, c, fids, cfg.Workers)
	if err != nil {
		return stats, fmt.Errorf("ranks: %w", err)
	}
	stats.Ranked, stats.Missing = len(ranked), missing
	if d := time.Since(rankStart); d > 0 {
		stats.RanksPerSec = float64(len(fids)) / d.Seconds()
	}

	board, err := c.Leaderboard(ctx, cfg.Top)
	if err != nil {
		return stats, fmt.Errorf("leaderboard: %w", err)
	}
	stats.Leaderboard = len(board)
	stats.Duration = time.Since(start)

	// Scores may still move while the queue is busy.
	if !stats.Drained {
		ranked = nil
	}
	if err := VerifyLeaderboard(board, ranked); err != nil {
		return stats, err
	}

	log.Info(ctx, "bench completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("ranked", stats.Ranked),
		logger.Int("missing", stats.Missing),
		logger.String("duration", stats.Duration.String()))
	return stats, nil
}

// benchFIDs draws n distinct FIDs from [1, maxFID].
func benchFIDs(n int, maxFID, seed uint64) []uint64 {
	if maxFID < uint64(n) {
		maxFID = uint64(n)
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	seen := make(map[uint64]struct{}, n)
	out := make([]uint64, 0, n)
	for len(out) < n {
		fid := r.Uint64N(maxFID) + 1
		if _, dup := seen[fid]; dup {
			continue
		}
		seen[fid] = struct{}{}
		out = append(out, fid)
	}
	return out
}

// waitForDrain polls /stats until the refresh queue is empty and no worker
// is busy, or until settle elapses.
func waitForDrain(ctx context.Context, c *Client, settle time.Duration) bool {
	deadline := time.Now().Add(settle)
	ticker := time.NewTicker(benchPollInterval)
	defer ticker.Stop()
	for {
		if st, err := c.Stats(ctx); err == nil && number(st["queueLength"]) == 0 && number(st["activeWorkers"]) == 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// number reads a JSON number out of a decoded map; missing keys are -1.
func number(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return -1
}

// fetchRanks reads the rank of every fid. Profiles the server never ranked
// (unknown upstream, or still queued) count as missing.
func fetchRanks(ctx context.Context, c *Client, fids []uint64, workers int) ([]types.Entry, int, error) {
	out := make([]types.Entry, len(fids))
	found := make([]bool, len(fids))
	var missing atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(workers, 1))
	for i, fid := range fids {
		eg.Go(func() error {
			e, err := c.Rank(ctx, fid)
			var se *StatusError
			switch {
			case err == nil:
				out[i], found[i] = e, true
			case errors.As(err, &se) && se.Code == http.StatusNotFound:
				missing.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}

	ranked := make([]types.Entry, 0, len(fids))
	for i, ok := range found {
		if ok {
			ranked = append(ranked, out[i])
		}
	}
	return ranked, int(missing.Load()), nil
}

// VerifyLeaderboard checks that board is ordered by score descending then
// fid ascending with dense ranks, and that every ranked entry agrees with
// the board where both list the same fid.
func VerifyLeaderboard(board, ranked []types.Entry) error {
	for i := range board {
		if i == 0 {
			if board[0].Rank != 1 {
				return fmt.Errorf("%w: first rank is %d", ErrLeaderboardOrder, board[0].Rank)
			}
			continue
		}
		prev, cur := board[i-1], board[i]
		switch {
		case cur.Score > prev.Score:
			return fmt.Errorf("%w: entry %d scores above entry %d", ErrLeaderboardOrder, i, i-1)
		case cur.Score == prev.Score && (cur.Rank != prev.Rank || cur.FID <= prev.FID):
			return fmt.Errorf("%w: tie at entry %d", ErrLeaderboardOrder, i)
		case cur.Score < prev.Score && cur.Rank != prev.Rank+1:
			return fmt.Errorf("%w: rank gap at entry %d", ErrLeaderboardOrder, i)
		}
	}

	byFID := make(map[uint64]types.Entry, len(board))
	for _, e := range board {
		byFID[e.FID] = e
	}
	for _, e := range ranked {
		if b, ok := byFID[e.FID]; ok && (b.Score != e.Score || b.Rank != e.Rank) {
			return fmt.Errorf("%w: fid %d is %d/%d on the board but %d/%d by rank",
				ErrLeaderboardOrder, e.FID, b.Rank, b.Score, e.Rank, e.Score)
		}
	}
	return nil
}

func writeBenchStats(w io.Writer, s BenchStats, board []types.Entry) {
	fmt.Fprintf(w, "requested %d, accepted %d (%.1f%%), ranked %d, missing %d\n",
		s.Requested, s.Accepted, s.AcceptedRatio, s.Ranked, s.Missing)
	fmt.Fprintf(w, "drained %t, %.1f ranks/s, took %s\n", s.Drained, s.RanksPerSec, s.Duration.Round(time.Millisecond))
	if len(board) > 0 {
		_ = writeEntries(w, board[:min(len(board), 10)])
	}
}

func newBenchCommand(g *globalFlags) *cobra.Command {
	cfg := BenchConfig{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load a live server with refreshes and verify the leaderboard",
		Long: "bench queues refreshes for random FIDs, waits for the worker pool to drain,\n" +
			"reads every rank back and checks the leaderboard ordering.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				cfg.Seed = uint64(time.Now().UnixNano())
			}
			c := g.client()
			stats, err := Bench(cmd.Context(), c, cfg)
			if err != nil {
				return err
			}
			if g.format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			board, err := c.Leaderboard(cmd.Context(), cfg.Top)
			if err != nil {
				return err
			}
			writeBenchStats(cmd.OutOrStdout(), stats, board)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.Profiles, "profiles", defaultBenchProfiles, "Number of distinct FIDs to refresh")
	f.Uint64Var(&cfg.MaxFID, "max-fid", defaultBenchMaxFID, "Upper bound of the sampled FIDs")
	f.IntVar(&cfg.Workers, "workers", defaultBenchWorkers, "Concurrent requests")
	f.IntVar(&cfg.Top, "top", defaultBenchTop, "Leaderboard entries to verify")
	f.IntVar(&cfg.Batch, "batch", defaultRefreshBatch, "FIDs per refresh request")
	f.DurationVar(&cfg.Settle, "settle", defaultBenchSettle, "How long to wait for the queue to drain")
	f.Uint64Var(&cfg.Seed, "seed", 0, "Random seed (default: time based)")
	return cmd
}
