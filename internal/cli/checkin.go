package cli

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/quotient/internal/domain/checkin"
)

func newCheckInCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Daily check-in status",
	}
	run := func(method string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			st, err := g.client().CheckIn(cmd.Context(), method, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if method == http.MethodDelete {
				fmt.Fprintf(out, "cleared %s\n", args[0])
				return nil
			}
			if g.format == FormatJSON {
				return writeJSON(out, st)
			}
			writeStatus(out, st)
			return nil
		}
	}
	cmd.AddCommand(
		&cobra.Command{Use: "status <key>", Short: "Show today's status", Args: cobra.ExactArgs(1), RunE: run(http.MethodGet)},
		&cobra.Command{Use: "record <key>", Short: "Check in for today", Args: cobra.ExactArgs(1), RunE: run(http.MethodPost)},
		&cobra.Command{Use: "clear <key>", Short: "Forget today's check-in", Args: cobra.ExactArgs(1), RunE: run(http.MethodDelete)},
	)
	return cmd
}

func writeStatus(w io.Writer, st checkin.Status) {
	state := "not checked in"
	if st.CheckedIn {
		state = "checked in"
	}
	fmt.Fprintf(w, "%s %s on %s, next eligible %s\n", st.Key, state, st.Day, st.NextEligible.UTC().Format(time.RFC3339))
}
