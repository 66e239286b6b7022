package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"kidquest/internal/config"
	"kidquest/internal/database"
	"kidquest/internal/logging"
	"kidquest/internal/service"
)

const usage = `Kid Quest backup tool

Usage:
  backup export [-output file]          write every table to a JSON file
  backup import -input file [-clear]    load a JSON backup into the database

Export flags:
  -output   destination (default backup_YYYYMMDD_HHMMSS.json)

Import flags:
  -input    backup file to load (required)
  -clear    delete all existing rows first; asks for confirmation
  -yes      skip the -clear confirmation

The database is chosen like the server does it:
  DB_TYPE        sqlite, postgres or mysql (default sqlite)
  DB_PATH        SQLite file (default ./kidquest.db)
  DATABASE_URL   PostgreSQL or MySQL DSN
`

var errCancelled = errors.New("import cancelled")

func main() {
	if len(os.Args) < 2 || (os.Args[1] != "export" && os.Args[1] != "import") {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	logger, err := logging.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errCancelled) {
			logger.Info("Import cancelled")
			return
		}
		logger.Fatal("Backup command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	output := fs.String("output", "", "output file path")
	input := fs.String("input", "", "input file path")
	clearFirst := fs.Bool("clear", false, "clear existing data before import")
	assumeYes := fs.Bool("yes", false, "do not ask before clearing")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if command == "import" && *input == "" {
		return errors.New("-input is required")
	}

	db, err := database.InitializeWithConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	backups := service.NewBackupService(db, logger)
	if command == "export" {
		return exportTo(ctx, logger, backups, *output)
	}
	return importFrom(ctx, logger, backups, *input, *clearFirst, *assumeYes, os.Stdin)
}

func exportTo(ctx context.Context, logger *zap.Logger, backups *service.BackupService, path string) error {
	if path == "" {
		path = "backup_" + time.Now().Format("20060102_150405") + ".json"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := backups.Export(ctx, path); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	logger.Info("Export complete", zap.String("path", path), zap.Int64("bytes", info.Size()))
	return nil
}

func importFrom(ctx context.Context, logger *zap.Logger, backups *service.BackupService, path string, clearFirst, assumeYes bool, stdin io.Reader) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot read backup: %w", err)
	}

	if clearFirst {
		if !assumeYes && !confirm(stdin, "This deletes all existing data. Type 'yes' to continue: ") {
			return errCancelled
		}
		if err := backups.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear database: %w", err)
		}
	}

	if err := backups.Import(ctx, path); err != nil {
		return err
	}
	logger.Info("Import complete", zap.String("path", path))
	return nil
}

func confirm(in io.Reader, prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}
