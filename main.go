package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/trubeko66/tg-export/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.Execute(ctx)
}
