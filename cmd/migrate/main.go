// Command migrate applies or rolls back the database schema.
//
//	migrate up
//	migrate down -steps 1
//	migrate version
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/prperemyshlev/postoptima-api/internal/config"
	"github.com/prperemyshlev/postoptima-api/migrations"
	"github.com/prperemyshlev/postoptima-api/pkg/database"
	"github.com/prperemyshlev/postoptima-api/pkg/observability"
	"go.uber.org/zap"
)

func main() {
	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
	steps := flags.Int("steps", 1, "number of migrations to roll back")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), "usage: migrate up|down|version [-steps n]")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(2)
	}
	command := os.Args[1]
	if err := flags.Parse(os.Args[2:]); err != nil {
		log.Fatal(err)
	}

	var cfg config.PostgresConfig
	if err := config.LoadSection("POSTGRES_", &cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.InitLogger(os.Getenv("ENV"))
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// migrations run as the connection owner, never under a scoped role
	db, err := database.NewPostgres(cfg.DSN(), "")
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	switch command {
	case "up":
		err = database.MigrateUp(ctx, db.DB, migrations.FS)
	case "down":
		err = database.MigrateDown(ctx, db.DB, migrations.FS, *steps)
	case "version":
		var version uint
		var dirty bool
		version, dirty, err = database.MigrationVersion(ctx, db.DB, migrations.FS)
		if err == nil {
			logger.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}
	default:
		flags.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
	logger.Info("Migration finished", zap.String("command", command))
}
