package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"aurum-storefront/internal/config"
	"aurum-storefront/internal/db"
	"aurum-storefront/internal/logging"
	"aurum-storefront/internal/migrate"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	showVersion := flag.Bool("version", false, "print the current schema version and exit")
	flag.Parse()

	cfg := config.Load()
	logger := logging.Component(logging.New(cfg.LogLevel, cfg.LogPretty), "migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	switch {
	case *showVersion:
		v, dirty, err := migrate.Version(ctx, pool)
		if err != nil {
			logger.Fatal().Err(err).Msg("read schema version")
		}
		fmt.Fprintf(os.Stdout, "version %d dirty=%t\n", v, dirty)
	case *down > 0:
		if err := migrate.Rollback(ctx, pool, *down); err != nil {
			logger.Fatal().Err(err).Msg("roll back migrations")
		}
		logger.Info().Int("steps", *down).Msg("migrations rolled back")
	default:
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Msg("migrations applied")
	}
}
