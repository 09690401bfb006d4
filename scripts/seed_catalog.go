package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"kairon/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads a catalog seed into the mock backend database without starting the server.
func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		seedPath = flag.String("seed", "configs/seed.yaml", "path to seed.yaml, empty for the built-in catalog")
		dbPath   = flag.String("db", "./data/kairon_mock.db", "path to sqlite db")
	)
	flag.Parse()

	seed := database.DefaultSeed()
	if *seedPath != "" {
		loaded, err := database.LoadSeed(*seedPath)
		if err != nil {
			return err
		}
		if len(loaded.Services) == 0 {
			return fmt.Errorf("no services in %s", *seedPath)
		}
		seed = loaded
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.ApplySeed(ctx, seed); err != nil {
		return err
	}

	services, err := db.ListServices(ctx, "")
	if err != nil {
		return err
	}
	professionals, err := db.ListProfessionals(ctx)
	if err != nil {
		return err
	}
	logger.Info().Int("services", len(services)).Int("professionals", len(professionals)).Str("db", *dbPath).Msg("catalog seeded")
	return nil
}
