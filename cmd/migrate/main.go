package main

import (
	"flag"

	"github.com/blog-realtime-api/internal/config"
	"github.com/blog-realtime-api/internal/database"
	"github.com/blog-realtime-api/pkg/logger"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	version := flag.Uint("version", 0, "migrate to this version")
	flag.Parse()

	cfg, err := config.LoadDatabase()
	if err != nil {
		boot := logger.New("info", "json")
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	path := cfg.Server.MigrationsPath
	err = db.Migrate(path, database.MigrationTarget{Down: *down, Version: *version})
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Migration failed")
	}
	log.Info().Msg("Migrations complete")
}
