// Command migrate applies, inspects and authors the database schema migrations.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finanzas/liquidaciones/internal/infrastructure/config"
	"github.com/finanzas/liquidaciones/internal/infrastructure/logger"
	"github.com/finanzas/liquidaciones/internal/infrastructure/migration"
)

const defaultMigrationsDir = "migrations"

var (
	migrationsDir string
	logLevel      string
	log           = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the liquidaciones database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New(config.LogConfig{Level: logLevel, Format: "console", Output: "stdout"})
		if err != nil {
			return err
		}
		log = l
		return nil
	},
}

func main() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&migrationsDir, "path", "",
		"migrations directory; empty uses the migrations embedded in the binary")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		migratorCommand("up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		migratorCommand("down", "Roll back all migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		migratorCommand("steps N", "Apply N migrations (negative rolls back)", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q: %w", args[0], err)
				}
				return m.Steps(n)
			}),
		migratorCommand("goto VERSION", "Migrate to a specific version", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return m.GoTo(uint(v))
			}),
		migratorCommand("force VERSION", "Set the version without running migrations", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return m.Force(v)
			}),
		migratorCommand("status", "Show the applied version", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				if !st.Applied {
					fmt.Println("No migrations applied")
					return nil
				}
				fmt.Printf("Version: %d\nDirty:   %t\n", st.Version, st.Dirty)
				return nil
			}),
		createCmd(),
		listCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error("Migration command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func migratorCommand(use, short string, args cobra.PositionalArgs,
	run func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			db, err := sql.Open("postgres", cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			if err := db.PingContext(cmd.Context()); err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to connect to database: %w", err)
			}

			m, err := migration.New(db, migrationsDir, log)
			if err != nil {
				_ = db.Close()
				return err
			}
			defer func() {
				if cerr := m.Close(); cerr != nil {
					log.Warn("Failed to close migrator", zap.Error(cerr))
				}
			}()
			return run(m, a)
		},
	}
}

func createCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new numbered migration pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := migration.CreateMigration(authoringDir(), args[0], description)
			if err != nil {
				return err
			}
			fmt.Printf("Created:\n  %s\n  %s\n", mf.UpPath, mf.DownPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "description written into the header")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List migrations on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := migration.ListMigrations(authoringDir())
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("No migrations found")
				return nil
			}
			for _, f := range files {
				fmt.Printf("%06d  %s\n", f.Version, f.Name)
			}
			return nil
		},
	}
}

func authoringDir() string {
	if migrationsDir != "" {
		return migrationsDir
	}
	return defaultMigrationsDir
}
