// Package cli implements quotientctl, the command line companion of the
// quotient server. The score command runs the engine offline; every other
// command talks to a running server over HTTP.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// Output formats.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
)

const (
	defaultURL     = "http://localhost:9080"
	defaultTimeout = 30 * time.Second
)

// ErrInvalidFormat is returned for an unknown --format value.
var ErrInvalidFormat = errors.New("invalid output format")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	url     string
	timeout time.Duration
	format  string
}

func (g *globalFlags) client() *Client {
	return NewClient(g.url, g.timeout)
}

func (g *globalFlags) validate() error {
	switch g.format {
	case FormatHuman, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: %q (want %s or %s)", ErrInvalidFormat, g.format, FormatHuman, FormatJSON)
	}
}

// NewRootCommand builds the quotientctl command tree. Output goes to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "quotientctl",
		Short:         "Query and drive a quotient server",
		Long:          "quotientctl scores Farcaster metrics offline and talks to a running quotient server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.validate()
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.StringVar(&g.url, "url", defaultURL, "Base URL of the quotient server")
	pf.DurationVar(&g.timeout, "timeout", defaultTimeout, "HTTP request timeout")
	pf.StringVar(&g.format, "format", FormatHuman, "Output format (human, json)")

	root.AddCommand(
		newScoreCommand(g),
		newLookupCommand(g),
		newRefreshCommand(g),
		newTopCommand(g),
		newRankCommand(g),
		newCheckInCommand(g),
		newShareCommand(g),
		newBenchCommand(g),
	)
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, out io.Writer, args []string) error {
	root := NewRootCommand(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
