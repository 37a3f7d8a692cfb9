package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"readingtracker/migrations"
)

const version = "0.1.0"

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}

type options struct {
	driver string
	dir    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply and inspect the reading tracker database migrations",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			if !cmd.Flags().Changed("driver") {
				opts.driver = getEnv("STORAGE_DRIVER", opts.driver)
			}
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.driver, "driver", "clickhouse", "storage backend: clickhouse or sqlite")

	cmd.AddCommand(
		newUpCmd(opts),
		newDownCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(opts),
		newCreateCmd(opts),
	)
	return cmd
}

func newUpCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd.Context(), opts, func(p *goose.Provider) error {
				results, err := p.Up(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
				for _, r := range results {
					cmd.Printf("applied %05d %s (%s)\n", r.Source.Version, filepath.Base(r.Source.Path), r.Duration)
				}
				cmd.Printf("Migrations completed successfully (%d applied)\n", len(results))
				return nil
			})
		},
	}
}

func newDownCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd.Context(), opts, func(p *goose.Provider) error {
				r, err := p.Down(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to rollback migration: %w", err)
				}
				cmd.Printf("rolled back %05d %s\n", r.Source.Version, filepath.Base(r.Source.Path))
				return nil
			})
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which migrations are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd.Context(), opts, func(p *goose.Provider) error {
				statuses, err := p.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				for _, s := range statuses {
					applied := "pending"
					if s.State == goose.StateApplied {
						applied = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					cmd.Printf("%05d %-30s %s\n", s.Source.Version, filepath.Base(s.Source.Path), applied)
				}
				return nil
			})
		},
	}
}

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current database migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd.Context(), opts, func(p *goose.Provider) error {
				v, err := p.GetDBVersion(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to get version: %w", err)
				}
				cmd.Printf("Current migration version: %d\n", v)
				return nil
			})
		},
	}
}

func newCreateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new SQL migration file for the selected driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.dir
			if dir == "" {
				dir = filepath.Join("migrations", opts.driver)
			}
			goose.SetSequential(true)
			if err := goose.Create(nil, dir, args[0], "sql"); err != nil {
				return fmt.Errorf("failed to create migration: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", "", "target directory (default migrations/<driver>)")
	return cmd
}

// withProvider opens the configured database and runs fn with a goose provider over the embedded migrations
func withProvider(ctx context.Context, opts *options, fn func(p *goose.Provider) error) error {
	db, dialect, err := openDB(opts.driver)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	fsys, err := migrations.Dir(opts.driver)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	return fn(provider)
}

func openDB(driver string) (*sql.DB, goose.Dialect, error) {
	switch driver {
	case "clickhouse":
		port, err := strconv.Atoi(getEnv("CLICKHOUSE_PORT", "9000"))
		if err != nil {
			return nil, "", fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
		}
		opts := &clickhouse.Options{
			Addr: []string{fmt.Sprintf("%s:%d", getEnv("CLICKHOUSE_HOST", "localhost"), port)},
			Auth: clickhouse.Auth{
				Database: getEnv("CLICKHOUSE_DATABASE", "default"),
				Username: getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Settings: clickhouse.Settings{"max_execution_time": 60},
		}
		if getEnv("CLICKHOUSE_USE_TLS", "false") == "true" {
			opts.TLS = &tls.Config{}
		}
		return clickhouse.OpenDB(opts), goose.DialectClickHouse, nil
	case "sqlite":
		path := getEnv("SQLITE_PATH", "readingtracker.db")
		db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, "", fmt.Errorf("failed to open sqlite: %w", err)
		}
		return db, goose.DialectSQLite3, nil
	default:
		return nil, "", fmt.Errorf("unknown driver %q (expected clickhouse or sqlite)", driver)
	}
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
