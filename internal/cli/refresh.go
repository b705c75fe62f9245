package cli

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRefreshBatch       = 100
	defaultRefreshConcurrency = 4
)

// RefreshResult summarises a batched refresh.
type RefreshResult struct {
	Requested int `json:"requested"`
	Accepted  int `json:"accepted"`
	Batches   int `json:"batches"`
	Rejected  int `json:"rejected"`
}

// RefreshAll splits fids into batches and posts them with at most
// concurrency requests in flight. Backpressure is counted, not returned.
func RefreshAll(ctx context.Context, c *Client, fids []uint64, batch, concurrency int) (RefreshResult, error) {
	if batch < 1 {
		batch = defaultRefreshBatch
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var accepted, rejected atomic.Int64
	res := RefreshResult{Requested: len(fids)}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for start := 0; start < len(fids); start += batch {
		chunk := fids[start:min(start+batch, len(fids))]
		res.Batches++
		eg.Go(func() error {
			ack, err := c.Refresh(ctx, chunk)
			if err != nil {
				return err
			}
			accepted.Add(int64(ack.Accepted))
			rejected.Add(int64(len(chunk) - ack.Accepted))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return res, err
	}
	res.Accepted = int(accepted.Load())
	res.Rejected = int(rejected.Load())
	return res, nil
}

func newRefreshCommand(g *globalFlags) *cobra.Command {
	var batch, concurrency int
	cmd := &cobra.Command{
		Use:   "refresh <fid>...",
		Short: "Queue background refreshes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fids := make([]uint64, 0, len(args))
			for _, a := range args {
				fid, err := parseFID(a)
				if err != nil {
					return err
				}
				fids = append(fids, fid)
			}
			res, err := RefreshAll(cmd.Context(), g.client(), fids, batch, concurrency)
			if err != nil {
				return err
			}
			if g.format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d of %d fids in %d batches", res.Accepted, res.Requested, res.Batches)
			if res.Rejected > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d rejected by backpressure)", res.Rejected)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", defaultRefreshBatch, "FIDs per request")
	cmd.Flags().IntVar(&concurrency, "concurrency", defaultRefreshConcurrency, "Requests in flight")
	return cmd
}
