package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"carrierlookup/cmd/fcl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		slog.Error("fcl failed", "err", err)
		os.Exit(1)
	}
}
