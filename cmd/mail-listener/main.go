package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sdskataster/internal/config"
	"sdskataster/internal/listener"
)

// Same loop as `sdskataster mail:listen`, for service managers that want a
// single-purpose binary.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := listener.Serve(ctx, cfg, cfg.Logger(os.Stderr)); err != nil {
		fmt.Fprintf(os.Stderr, "listener: %v\n", err)
		os.Exit(1)
	}
}
