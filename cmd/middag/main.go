package main

import (
	"fmt"
	"log/slog"
	"os"

	"middag/internal/cli"
	"middag/internal/config"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cli.NewRootCmd(&cli.App{Config: cfg, Logger: logger}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
