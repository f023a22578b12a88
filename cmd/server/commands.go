package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/campusconnect/internal/config"
	"github.com/HammerMeetNail/campusconnect/internal/database"
	"github.com/HammerMeetNail/campusconnect/internal/logging"
)

// newMigrator is swapped out in tests.
var newMigrator = func(dsn, path string) (migrator, error) {
	return database.NewMigrator(dsn, path)
}

type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Close() error
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "campusconnect",
		Short:         "Student and alumni connection request service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")

	loadConfig := func() (*config.Config, *logging.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		level, err := logging.ParseLevel(cfg.Server.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		logging.SetDefaultLevel(level)
		return cfg, logging.New().SetLevel(level), nil
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, logger)
		},
	}

	root.AddCommand(serve, newMigrateCmd(loadConfig))
	return root
}

func newMigrateCmd(loadConfig func() (*config.Config, *logging.Logger, error)) *cobra.Command {
	var steps int

	withMigrator := func(fn func(cmd *cobra.Command, m migrator, logger *logging.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := newMigrator(cfg.Database.DSN(), cfg.Database.MigrationsPath)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()
			return fn(cmd, m, logger)
		}
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, logger *logging.Logger) error {
			if err := m.Up(); err != nil {
				return err
			}
			logger.Info("Migrations completed")
			return nil
		}),
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (one step by default, 0 for all)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, logger *logging.Logger) error {
			if steps < 0 {
				return fmt.Errorf("steps must not be negative, got %d", steps)
			}
			if steps == 0 {
				if err := m.Down(); err != nil {
					return err
				}
				logger.Info("All migrations rolled back")
				return nil
			}
			if err := m.Steps(-steps); err != nil {
				return err
			}
			logger.Info("Migrations rolled back", map[string]interface{}{"steps": steps})
			return nil
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back, 0 for all")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, logger *logging.Logger) error {
			v, dirty, err := m.Version()
			if err != nil {
				return fmt.Errorf("reading schema version: %w", err)
			}
			if dirty {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d (dirty)\n", v)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d\n", v)
			return err
		}),
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
