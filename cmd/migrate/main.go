package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"oneclick-video/config"
	"oneclick-video/pkg/database"
)

const usage = `
OneClick Video - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Apply pending SQL migrations
  status      Show applied and pending migrations

Flags:
  -migrations string   Path to migrations directory (default from MIGRATIONS_DIR or "migrations")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
`

func main() {
	cfg := config.LoadConfig()

	migrationsDir := flag.String("migrations", cfg.MigrationsDir, "Path to migrations directory")
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	switch command := flag.Arg(0); command {
	case "up":
		ran, err := database.ApplyRawMigrations(db, *migrationsDir)
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		if len(ran) == 0 {
			log.Println("Database is up to date")
			return
		}
		for _, name := range ran {
			log.Printf("Applied %s", name)
		}
	case "status":
		states, err := database.MigrationStatus(db, *migrationsDir)
		if err != nil {
			log.Fatalf("Status failed: %v", err)
		}
		for _, s := range states {
			if s.Applied {
				log.Printf("applied  %-40s %s", s.Version, s.AppliedAt.Format("2006-01-02 15:04:05"))
			} else {
				log.Printf("pending  %s", s.Version)
			}
		}
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
