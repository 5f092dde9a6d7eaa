package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/acertamais-backend/pkg/config"
	"github.com/angelmondragon/acertamais-backend/pkg/db"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
	"github.com/angelmondragon/acertamais-backend/pkg/migrate"
)

type cliFlags struct {
	cmd      string
	dir      string
	name     string
	version  string
	embedded bool
}

var errUsage = errors.New("usage")

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var f cliFlags
	flag.StringVar(&f.cmd, "cmd", "up", "migration command: up|down|status|redo|version|create|validate")
	flag.StringVar(&f.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&f.name, "name", "", "migration name (for create)")
	flag.StringVar(&f.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.BoolVar(&f.embedded, "embedded", false, "read migrations bundled in the binary instead of -dir")
	flag.Parse()

	if err := run(context.Background(), logg, f); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", f.cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, f cliFlags) error {
	// create and validate only touch the filesystem
	switch f.cmd {
	case "create":
		if f.name == "" {
			return fmt.Errorf("%w: -name is required for create", errUsage)
		}
		path, err := migrate.CreateSQLMigration(f.dir, f.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(f.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	opts, dir := migrate.Options{}, f.dir
	if f.embedded {
		opts.FS, dir = migrate.Embedded, migrate.EmbeddedDir
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": f.cmd,
		"dir": dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	logg.Info(ctx, "migrate ready")
	if err := dispatch(ctx, opts, sqlDB, dir, f); err != nil {
		return err
	}
	logg.Info(ctx, "migrate finished")
	return nil
}

func dispatch(ctx context.Context, opts migrate.Options, sqlDB *sql.DB, dir string, f cliFlags) error {
	switch f.cmd {
	case "up", "down", "status", "redo":
		return migrate.RunWith(ctx, opts, sqlDB, dir, f.cmd)
	case "version":
		if f.version == "" {
			return fmt.Errorf("%w: -version is required for version", errUsage)
		}
		if opts.FS != nil {
			return migrate.RunWith(ctx, opts, sqlDB, dir, "up-to", f.version)
		}
		return migrate.MigrateToVersion(ctx, sqlDB, dir, f.version)
	default:
		return fmt.Errorf("%w: unknown -cmd value %q", errUsage, f.cmd)
	}
}
