package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomjnixon/mk2go/internal/config"
	"github.com/tomjnixon/mk2go/internal/logging"
	"github.com/tomjnixon/mk2go/internal/monitor"
)

func main() {
	configPath := flag.String("config", "mk2mon.toml", "path to the TOML configuration")
	flag.Parse()

	log := logging.ConfigureRuntime("mk2mon")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mk2mon: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = monitor.NewService(cfg, log).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "mk2mon: %v\n", err)
		os.Exit(1)
	}
}
