package main

import (
	"flag"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/wideshreck/procurementflow-backend/config"
	"github.com/wideshreck/procurementflow-backend/directory"
	"github.com/wideshreck/procurementflow-backend/internal/database"
	"github.com/wideshreck/procurementflow-backend/internal/store"
)

// =============================================================================
// Database Schema Commands
// =============================================================================

// managedTables lists every table the schema commands manage, in creation order.
var managedTables = []string{
	"workflow_definitions",
	"workflow_nodes",
	"workflow_edges",
	"workflow_instances",
	"node_executions",
	"approval_requests",
	"subject_records",
	"departments",
}

// runMigrate handles the migrate command and its subcommands
func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "up":
		runMigrateUp(subargs)
	case "status":
		runMigrateStatus(subargs)
	case "help", "-h", "--help":
		printMigrateUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", subcommand)
		printMigrateUsage()
		os.Exit(1)
	}
}

// printMigrateUsage prints the usage information for migrate command
func printMigrateUsage() {
	fmt.Println(`Database Schema Commands

Usage:
  procurementflow migrate <subcommand> [options]

Subcommands:
  up        Synchronize the database schema (create/alter tables)
  status    Show which tables exist
  help      Show this help message

Options:
  --config <path>   Path to configuration file (YAML)

Examples:
  procurementflow migrate up
  procurementflow migrate up --config /etc/procurementflow/config.yaml
  procurementflow migrate status`)
}

// openMigrateDB loads the configuration and opens the database connection
func openMigrateDB(fs *flag.FlagSet, args []string) (*gorm.DB, error) {
	configPath := fs.String("config", "", "Path to config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.Open(cfg.Database)
}

// runMigrateUp synchronizes the schema of all managed tables
func runMigrateUp(args []string) {
	fs := flag.NewFlagSet("migrate up", flag.ExitOnError)
	db, err := openMigrateDB(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	if err := store.AutoMigrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
	if err := directory.AutoMigrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Schema synchronized (%d tables)\n", len(managedTables))
}

// runMigrateStatus reports which managed tables exist in the database
func runMigrateStatus(args []string) {
	fs := flag.NewFlagSet("migrate status", flag.ExitOnError)
	db, err := openMigrateDB(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	migrator := db.Migrator()
	missing := 0
	for _, table := range managedTables {
		state := "ok"
		if !migrator.HasTable(table) {
			state = "missing"
			missing++
		}
		fmt.Printf("  %-22s %s\n", table, state)
	}

	if missing > 0 {
		fmt.Printf("%d table(s) missing, run 'procurementflow migrate up'\n", missing)
		os.Exit(1)
	}
	fmt.Println("All tables present")
}
