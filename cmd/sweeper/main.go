package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/sweeper"
)

func main() {

	cfg, err := sweeper.ParseConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := logging.New(os.Stderr, "text", cfg.LogLevel)
	if err := sweeper.New(cfg, sweeper.DialGRPC, l).Run(ctx); err != nil {
		l.Error(ctx, "sweeper failed", "error", err)
		stop()
		os.Exit(1)
	}

}
