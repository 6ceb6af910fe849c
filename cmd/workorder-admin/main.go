// Command workorder-admin is the operations CLI: it runs migrations, seeds
// development data, and resets the schema.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fieldops/workorder-api/config"
	"github.com/fieldops/workorder-api/internal/bootstrap"
	"github.com/fieldops/workorder-api/internal/data"
	"github.com/fieldops/workorder-api/internal/devseed"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2)
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1)
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1)
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrate,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run database migrations and seed development data",
			run:         runDBSeed,
		},
		"db-reset": {
			name:        "db-reset",
			description: "Drop the database schema, run migrations, and optionally seed data",
			run:         runDBReset,
		},
	}
}

func printUsage() {
	fmt.Fprintf(os.Stdout, "Usage: workorder-admin <command> [flags]\n\n")
	fmt.Fprintf(os.Stdout, "Available commands:\n")
	for _, c := range commands() {
		fmt.Fprintf(os.Stdout, "  %-12s %s\n", c.name, c.description)
	}
}

func connect(cmdCtx *commandContext) (*sql.DB, error) {
	return bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("close database", "error", err)
	}
}

func runMigrate(cmdCtx *commandContext, _ []string) error {
	db, err := connect(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(db, cmdCtx.Logger)

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultMigrationTimeout)
	defer cancel()
	return data.RunMigrations(ctx, db)
}

func runDBSeed(cmdCtx *commandContext, _ []string) error {
	db, err := connect(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(db, cmdCtx.Logger)

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultMigrationTimeout)
	defer cancel()
	if err := data.RunMigrations(ctx, db); err != nil {
		return err
	}
	return devseed.Run(cmdCtx.Ctx, devseed.NewServices(db), cmdCtx.Logger)
}

func runDBReset(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("db-reset", flag.ContinueOnError)
	seed := fs.Bool("seed", false, "seed development data after migrating")
	yes := fs.Bool("yes", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("db-reset drops all data; rerun with -yes to confirm")
	}
	if !cmdCtx.Config.IsDev {
		return fmt.Errorf("db-reset is limited to development environments")
	}

	db, err := connect(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(db, cmdCtx.Logger)

	if _, err := db.ExecContext(cmdCtx.Ctx,
		`DROP SCHEMA public CASCADE; CREATE SCHEMA public`); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	cmdCtx.Logger.InfoContext(cmdCtx.Ctx, "schema dropped")

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultMigrationTimeout)
	defer cancel()
	if err := data.RunMigrations(ctx, db); err != nil {
		return err
	}
	if *seed {
		return devseed.Run(cmdCtx.Ctx, devseed.NewServices(db), cmdCtx.Logger)
	}
	return nil
}
