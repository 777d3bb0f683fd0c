// Command blinky runs the blinky state machine, logging its snapshot on every
// toggle and exposing it on /metrics.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/librescoot/fsmsnap/internal/blinkyd"
	"github.com/librescoot/fsmsnap/internal/config"
)

func main() {
	cfg, err := blinkyd.LoadConfig()
	if err != nil {
		config.Exitf("load config: %v", err)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := blinkyd.Run(ctx, cfg, logger, nil); err != nil {
		config.Exitf("blinky: %v", err)
	}
}
