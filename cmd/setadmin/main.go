// Package main provides a CLI tool for granting or revoking admin rights.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cory-johannsen/mudcore/internal/config"
	"github.com/cory-johannsen/mudcore/internal/observability"
	"github.com/cory-johannsen/mudcore/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	username := flag.String("username", "", "target player username (required)")
	admin := flag.Bool("admin", true, "grant (true) or revoke (false) admin rights")
	flag.Parse()

	if *username == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		log.Fatalf("driver %q does not persist players", cfg.Database.Driver)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("opening storage: %v", err)
	}
	defer store.Close()

	p, err := store.GetPlayerByUsername(ctx, *username)
	if err != nil {
		log.Fatalf("looking up player %q: %v", *username, err)
	}

	if err := store.SetPlayerAdmin(ctx, p.ID, *admin); err != nil {
		log.Fatalf("setting admin flag: %v", err)
	}

	elapsed := time.Since(start)
	fmt.Fprintf(os.Stdout, "set admin for %s (%s): %v -> %v [%s]\n",
		p.Username, p.ID, p.IsAdmin, *admin, elapsed)
}
