package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/config"
	"github.com/zulandar/shiftyard/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Shiftyard database",
		Long:  "Creates the roster database if needed and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config from %s\n", configPath)

	if cfg.Database.Driver == config.DriverMySQL {
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to MySQL at %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", cfg.Database.Name)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", describeDB(cfg.Database), err)
	}
	if err := migrate(cmd, gormDB); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nShiftyard database initialized successfully.")
	return nil
}

func migrate(cmd *cobra.Command, gormDB *gorm.DB) error {
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables\n", len(db.AllModels()))
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the Shiftyard database",
		Long: `Drops every Shiftyard table and migrates them again.

With MySQL the whole database is dropped and re-created. All cycles,
leaves, catalogs and uploaded schedules are lost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !skipConfirm && !confirm(cmd, fmt.Sprintf("This will permanently delete all data in %s.", describeDB(cfg.Database))) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	if cfg.Database.Driver == config.DriverMySQL {
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to MySQL at %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
		}
		if err := db.DropDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s re-created\n", cfg.Database.Name)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", describeDB(cfg.Database), err)
	}
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.DropTables(gormDB); err != nil {
			return err
		}
		fmt.Fprintf(out, "Dropped tables in %s\n", cfg.Database.Path)
	}
	if err := migrate(cmd, gormDB); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nShiftyard database reset and re-initialized successfully.")
	return nil
}

// confirm asks the user to type "yes".
func confirm(cmd *cobra.Command, warning string) bool {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "WARNING: %s\n", warning)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
