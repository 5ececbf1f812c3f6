package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkeye/Lobby/internal/ui"
)

const releaseVersion = "0.1.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCmd()
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		cancel()
		os.Exit(1)
	}
}
