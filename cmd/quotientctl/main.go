// Command quotientctl is the command line client for the quotient server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/quotient/internal/cli"
	"github.com/okian/quotient/pkg/logger"
)

func main() {
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if lvl := os.Getenv("QUOTIENT_LOG_LEVEL"); lvl != "" {
		_ = logger.SetLevelString(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
