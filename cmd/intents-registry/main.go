// Package main is the entrypoint for the intents-registry.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/intents-registry/internal/config"
	"github.com/morezero/intents-registry/internal/server"
	"github.com/morezero/intents-registry/pkg/controller"
	"github.com/morezero/intents-registry/pkg/db"
	"github.com/morezero/intents-registry/pkg/events"
	"github.com/morezero/intents-registry/pkg/intents"
)

const usage = `Usage: intents-registry [command]
       intents-registry serve              Start the registry (NATS, HTTP, intents API).
       intents-registry check [dir]        Load and register module descriptors, print the report.
       intents-registry seed [dir]         Register module descriptors and write providers to the database.
       intents-registry migrate up         Run database migrations.
       intents-registry migrate down       Roll back the most recent migration using its .down.sql script.
       intents-registry migrate status     Show applied and pending migrations and the mirrored provider count.
       intents-registry mirror [category] [action]
                                           Print mirrored provider rows as JSON.
       intents-registry ensure-db [name]   Create database if missing (default name: intents_test). Uses DATABASE_URL host/user.
       intents-registry clear              Truncate the provider mirror; schema is preserved.

Commands:
  serve            (default) Start the intents registry.
  check [dir]      Dry-run module registration (default dir: MODULES_DIR). Exits 1 on any module failure.
  seed [dir]       Like check, then upsert every registered provider into intent_providers.
  migrate up       Run database migrations only.
  migrate down     Roll back the last applied migration.
  migrate status   Show current migration status.
  mirror           List mirrored providers, optionally filtered by category and action.
  ensure-db [name] Create database (e.g. intents_test) on same host as DATABASE_URL; then run tests with that URL.
  clear            Truncate mirrored providers; schema preserved.

Environment: SERVER_ROOT (required), MODULES_DIR, MODULE_FAILURE_POLICY (skip|fail), COMMS_URL,
DATABASE_URL (mirror and db commands), DB_MAX_CONNS, MIGRATION_PATH, HTTP_PORT (default 8080), LOG_LEVEL. See README.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("intents-registry migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("intents-registry migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("intents-registry migrate status: %v", err)
			}
		case "down":
			if err := runMigrateDown(); err != nil {
				log.Fatalf("intents-registry migrate down: %v", err)
			}
		default:
			log.Fatalf("intents-registry migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "check":
		ok, err := runCheck(optionalArg(args), os.Stdout)
		if err != nil {
			log.Fatalf("intents-registry check: %v", err)
		}
		if !ok {
			os.Exit(1)
		}
		return
	case "seed":
		if err := runSeed(optionalArg(args)); err != nil {
			log.Fatalf("intents-registry seed: %v", err)
		}
		return
	case "mirror":
		var category, action string
		if len(args) > 1 {
			category = args[1]
		}
		if len(args) > 2 {
			action = args[2]
		}
		if err := runMirror(category, action, os.Stdout); err != nil {
			log.Fatalf("intents-registry mirror: %v", err)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("intents-registry clear: %v", err)
		}
		return
	case "ensure-db":
		dbName := "intents_test"
		if name := optionalArg(args); name != "" {
			dbName = name
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("intents-registry ensure-db: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("intents-registry: %v", err)
	}
}

func optionalArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

// loadCheckConfig loads config for commands that register modules offline.
// A non-empty dir overrides MODULES_DIR.
func loadCheckConfig(dir string) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dir != "" {
		cfg.ModulesDir = dir
	}
	server.SetupLogging(cfg.LogLevel)
	if err := cfg.ValidateForCheck(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runCheck registers every module into a throwaway registry and writes the
// report as JSON. It returns false when any module failed.
func runCheck(dir string, w io.Writer) (bool, error) {
	cfg, err := loadCheckConfig(dir)
	if err != nil {
		return false, err
	}
	reg := intents.NewRegistry(intents.NewRegistryParams{
		Config: intents.Config{ServerRoot: cfg.ServerRoot},
		Loader: controller.NewFSLoader(),
	})

	report, err := server.LoadModules(context.Background(), cfg, reg)
	if report != nil {
		if encErr := writeJSON(w, report); encErr != nil {
			return false, fmt.Errorf("write report: %w", encErr)
		}
	}
	if err != nil {
		return false, err
	}
	return report.OK(), nil
}

func runSeed(dir string) error {
	cfg, err := loadCheckConfig(dir)
	if err != nil {
		return err
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := db.NewRepository(pool)
	reg := intents.NewRegistry(intents.NewRegistryParams{
		Config:    intents.Config{ServerRoot: cfg.ServerRoot},
		Loader:    controller.NewFSLoader(),
		Publisher: events.NewMultiPublisher(db.NewMirror(repo)),
	})
	report, err := server.LoadModules(ctx, cfg, reg)
	if err != nil {
		return err
	}
	mirrored, err := repo.CountProviders(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d providers from %d/%d modules; mirror holds %d rows.\n",
		reg.Count(), report.Registered, report.Modules, mirrored)
	return nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, db.NewPoolParams{DatabaseURL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMigrateUp() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	state, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	if err != nil {
		return err
	}
	out := migrationStatusOutput{MigrationState: state}
	if len(state.Applied) > 0 {
		n, err := db.NewRepository(pool).CountProviders(ctx)
		if err != nil {
			return err
		}
		out.Mirrored = &n
	}
	return writeJSON(os.Stdout, out)
}

type migrationStatusOutput struct {
	*db.MigrationState
	Mirrored *int `json:"mirrored,omitempty"`
}

func runMigrateDown() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	version, err := db.MigrationDown(ctx, pool, cfg.MigrationPath)
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Println("No applied migrations.")
		return nil
	}
	fmt.Printf("Rolled back migration %03d.\n", version)
	return nil
}

// runMirror writes mirrored provider rows matching category and action as JSON.
func runMirror(category, action string, w io.Writer) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rows, err := db.NewRepository(pool).ListProviders(ctx, db.ListProvidersParams{
		Category: category,
		Action:   action,
	})
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []db.IntentProvider{}
	}
	return writeJSON(w, rows)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runClear() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.ClearProviders(ctx, pool); err != nil {
		return fmt.Errorf("clear providers: %w", err)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	target, err := db.WithDatabase(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	created, err := db.EnsureDatabase(context.Background(), target)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Database %q created.\n", dbName)
	} else {
		fmt.Printf("Database %q already exists.\n", dbName)
	}
	return nil
}
