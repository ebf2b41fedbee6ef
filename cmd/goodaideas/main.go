// Package main provides the entry point for the goodaideas client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goodaideas/goodaideas/internal/cmd"
)

func main() {
	// Create a context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			stop()
			os.Exit(130)
		}

		fmt.Fprintf(os.Stderr, "Error: %s\n", cmd.ErrorMessage(err))
		stop()
		os.Exit(1)
	}
}
